package domain

import "fmt"

// Item is one outbound unit bound for every connected client.
// Items form a single total order: the order in which they are enqueued is
// the order every client observes.
type Item interface {
	Kind() ItemKind
}

type ItemKind int

const (
	KindChatLine ItemKind = iota + 1
	KindSystemNotice
	KindRosterSnapshot
)

func (k ItemKind) String() string {
	switch k {
	case KindChatLine:
		return "chat_line"
	case KindSystemNotice:
		return "system_notice"
	case KindRosterSnapshot:
		return "roster_snapshot"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// ChatLine is a relayed chat message, already formatted as "<name>: <text>".
type ChatLine struct {
	Text string
}

func (ChatLine) Kind() ItemKind { return KindChatLine }

// SystemNotice is a server-generated announcement, e.g. "<name> connected".
type SystemNotice struct {
	Text string
}

func (SystemNotice) Kind() ItemKind { return KindSystemNotice }

// RosterSnapshot carries the insertion-ordered display names of every
// active session at the moment the snapshot was enqueued.
type RosterSnapshot struct {
	Names []string
}

func (RosterSnapshot) Kind() ItemKind { return KindRosterSnapshot }
