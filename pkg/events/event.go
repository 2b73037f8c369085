package events

import (
	"time"

	"github.com/play/baloot/pkg/baloot"
)

// Kind 事件类型
type Kind string

const (
	KindRoundStarted  Kind = "round_started"
	KindCardPlayed    Kind = "card_played"
	KindTrickResolved Kind = "trick_resolved"
	KindRoundFinished Kind = "round_finished"
	KindMatchFinished Kind = "match_finished"
)

// Event 牌桌上发生的事情，序列化为 JSON 放进 redis list
type Event struct {
	Kind    Kind         `json:"kind"`
	TableId string       `json:"table_id"`
	Round   int          `json:"round"`            // 第几局，从 1 开始
	Seat    int8         `json:"seat"`             // 出牌的座位或一墩的首家，其它事件为 -1
	Card    *baloot.Card `json:"card,omitempty"`   // 出的牌
	Winner  int8         `json:"winner"`           // 这一墩的赢家，或者比赛赢的队伍
	Points  [2]int       `json:"points"`           // 两队本局得分
	Scores  [2]int       `json:"scores"`           // 两队总分
	Mode    string       `json:"mode,omitempty"`   // 玩法
	Trump   string       `json:"trump,omitempty"`  // 主花色
	Cards   []string     `json:"cards,omitempty"`  // 结算的一墩按出牌顺序的牌 ID
	Tricks  []byte       `json:"tricks,omitempty"` // 本局的墩，二进制编码，只有 round_finished 有
	At      int64        `json:"at"`               // Unix时间戳，毫秒
}

func newEvent(kind Kind, tableId string, round int) Event {
	return Event{
		Kind:    kind,
		TableId: tableId,
		Round:   round,
		Seat:    baloot.NoSeat,
		Winner:  baloot.NoSeat,
		At:      time.Now().UnixMilli(),
	}
}

// RoundStarted 新的一局开始
func RoundStarted(tableId string, round int, snap baloot.Snapshot) Event {
	ev := newEvent(KindRoundStarted, tableId, round)
	ev.Mode = snap.Mode.String()
	ev.Trump = snap.Trump.String()
	ev.Seat = snap.Turn
	return ev
}

// CardPlayed 座位出了一张牌
func CardPlayed(tableId string, round int, seat int8, card baloot.Card) Event {
	ev := newEvent(KindCardPlayed, tableId, round)
	ev.Seat = seat
	ev.Card = &card
	return ev
}

// TrickResolved 一墩结算完成，trick 是刚结算的一墩
func TrickResolved(tableId string, round int, snap baloot.Snapshot, trick baloot.CompletedTrick) Event {
	ev := newEvent(KindTrickResolved, tableId, round)
	ev.Seat = trick.Leader
	ev.Winner = snap.LastTrickWinner
	ev.Points = snap.Points
	ev.Cards = baloot.Cards(trick.Cards[:]).IDs()
	return ev
}

// RoundFinished 一局结束，分数已经计入比赛
func RoundFinished(tableId string, round int, result baloot.RoundResult, scores [2]int) Event {
	ev := newEvent(KindRoundFinished, tableId, round)
	ev.Mode = result.Mode.String()
	ev.Trump = result.Trump.String()
	ev.Points = result.Points
	ev.Scores = scores
	ev.Tricks = result.Tricks.Encode()
	return ev
}

// MatchFinished 有队伍达到目标分数
func MatchFinished(tableId string, rounds int, winner int8, scores [2]int) Event {
	ev := newEvent(KindMatchFinished, tableId, rounds)
	ev.Winner = winner
	ev.Scores = scores
	return ev
}
