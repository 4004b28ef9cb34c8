// Package game 存放客户端预测与服务端权威模拟共用的确定性移动规则。
// 两端必须调用同一份代码，才能保证相同输入序列得到逐位相同的位置。
package game

// Vec 二维位置
type Vec struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
}

// Command 单个方向输入，线上用单字母 token 表示
type Command byte

const (
	CmdNone  Command = 0
	CmdUp    Command = 'u'
	CmdDown  Command = 'd'
	CmdLeft  Command = 'l'
	CmdRight Command = 'r'
)

// ParseCommand 将 token 解析为命令；未知 token 返回 false
func ParseCommand(tok string) (Command, bool) {
	if len(tok) != 1 {
		return CmdNone, false
	}
	switch c := Command(tok[0]); c {
	case CmdUp, CmdDown, CmdLeft, CmdRight:
		return c, true
	default:
		return CmdNone, false
	}
}

func (c Command) String() string {
	if c == CmdNone {
		return ""
	}
	return string(rune(c))
}

// World 世界边界与每条命令的移动步长
type World struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Step   float64 `json:"step"`
}

// DefaultWorld 默认世界参数（服务端与客户端需一致）
func DefaultWorld() World {
	return World{Width: 720, Height: 480, Step: 2}
}

// Move 依次执行命令并做越界裁剪，返回新位置
func (w World) Move(pos Vec, cmds []Command) Vec {
	for _, c := range cmds {
		switch c {
		case CmdUp:
			pos.Y -= w.Step
		case CmdDown:
			pos.Y += w.Step
		case CmdLeft:
			pos.X -= w.Step
		case CmdRight:
			pos.X += w.Step
		default:
			continue
		}
		pos = w.clamp(pos)
	}
	return pos
}

func (w World) clamp(p Vec) Vec {
	if p.X < 0 {
		p.X = 0
	}
	if p.Y < 0 {
		p.Y = 0
	}
	if p.X > w.Width {
		p.X = w.Width
	}
	if p.Y > w.Height {
		p.Y = w.Height
	}
	return p
}

// StartPosition 开局布局：slot 0 为房主（左侧四分之一处），其余依次排在右侧
func (w World) StartPosition(slot int) Vec {
	if slot <= 0 {
		return Vec{X: w.Width * 0.25, Y: w.Height / 2}
	}
	return Vec{X: w.Width * 0.75, Y: w.Height / 2}
}

// Lerp 线性插值，t 取 [0,1]
func Lerp(a, b Vec, t float64) Vec {
	return Vec{X: a.X + (b.X-a.X)*t, Y: a.Y + (b.Y-a.Y)*t}
}
