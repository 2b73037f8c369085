package ledger

import (
	"encoding"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/play/baloot/pkg/baloot"
)

var _ encoding.BinaryMarshaler = (*Record)(nil)
var _ encoding.BinaryUnmarshaler = (*Record)(nil)

// Record 一场比赛的记录
type Record struct {
	MatchId    string
	TableId    string
	Scores     [2]int // 两队总分
	Dealer     int8   // 下一局的庄家
	Rounds     int    // 已经结算的局数
	Target     int    // 比赛结束的分数，0 表示一直打下去
	Winner     int8   // 赢的队伍，没有结束为 -1
	LastTricks []byte // 最近一局的墩，baloot.Tricks 二进制编码
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Extras     []byte // 其它信息，例如玩家名字、每局的玩法和得分
}

// NewRecord 创建一条新的比赛记录
// target 应该和牌桌判断比赛结束的分数一致，否则记录可能先于牌桌结束
func NewRecord(tableId string, target int) *Record {
	now := time.Now()
	return &Record{
		MatchId:   uuid.NewString(),
		TableId:   tableId,
		Target:    target,
		Winner:    baloot.NoSeat,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// State 转换成可以继续比赛的状态
func (r *Record) State() baloot.MatchState {
	return baloot.MatchState{
		Scores: r.Scores,
		Dealer: r.Dealer,
		Rounds: r.Rounds,
	}
}

// IsFinished 比赛是否已经有队伍赢
func (r *Record) IsFinished() bool {
	return r.Winner != baloot.NoSeat
}

// Tricks 解码最近一局的墩
func (r *Record) Tricks() (baloot.Tricks, error) {
	var ts baloot.Tricks
	if len(r.LastTricks) == 0 {
		return ts, nil
	}
	err := ts.UnmarshalBinary(r.LastTricks)
	return ts, err
}

// apply 把一局的结果计入记录，Target > 0 时检查是否有队伍获胜
func (r *Record) apply(result baloot.RoundResult) (err error) {
	r.Scores[0] += result.Points[0]
	r.Scores[1] += result.Points[1]
	r.Dealer = baloot.NextSeat(result.Dealer)
	r.Rounds++
	r.UpdatedAt = time.Now()

	r.LastTricks = result.Tricks.Encode()
	err = r.Set("history.-1", map[string]any{
		"mode":   result.Mode.String(),
		"trump":  result.Trump.String(),
		"dealer": result.Dealer,
		"points": result.Points,
	})
	if err != nil {
		return
	}

	if r.Target > 0 && (r.Scores[0] >= r.Target || r.Scores[1] >= r.Target) {
		switch {
		case r.Scores[0] > r.Scores[1]:
			r.Winner = 0
		case r.Scores[1] > r.Scores[0]:
			r.Winner = 1
		}
	}
	return nil
}

// Get gets the value of the key
func (r *Record) Get(key string) (value gjson.Result) {
	return gjson.GetBytes(r.Extras, key)
}

// Set sets the value of the key
func (r *Record) Set(key string, value any) (err error) {
	r.Extras, err = sjson.SetBytes(r.Extras, key, value)
	return
}

// MarshalBinary implements the encoding.BinaryMarshaler interface
func (r *Record) MarshalBinary() (data []byte, err error) {
	return json.Marshal(r)
}

// UnmarshalBinary implements the encoding.BinaryUnmarshaler interface
func (r *Record) UnmarshalBinary(data []byte) (err error) {
	return json.Unmarshal(data, r)
}
