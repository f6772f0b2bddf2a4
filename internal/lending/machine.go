// Package lending memodelkan siklus hidup permintaan peminjaman sebagai
// finite state machine beserta efeknya terhadap stok alat.
package lending

import (
	"errors"
	"fmt"

	"github.com/ahmadqo/bengkel-pinjam/internal/apperror"
	"github.com/ahmadqo/bengkel-pinjam/internal/model"
)

type Event string

const (
	EventApprove Event = "approve"
	EventReject  Event = "reject"
	EventReturn  Event = "return"
)

// ErrAlreadyApplied dikembalikan ketika permintaan sudah berada di status
// hasil keputusan yang sama. Pemanggil memperlakukannya sebagai no-op.
var ErrAlreadyApplied = errors.New("keputusan sudah diterapkan")

type transition struct {
	to    model.LoanStatus
	stock int // arah perubahan stok: -1 keluar, +1 kembali, 0 tidak berubah
}

type Machine struct {
	table    map[model.LoanStatus]map[Event]transition
	outcomes map[Event]model.LoanStatus
}

func NewMachine() *Machine {
	return &Machine{
		table: map[model.LoanStatus]map[Event]transition{
			model.LoanPending: {
				EventApprove: {to: model.LoanApproved, stock: -1},
				EventReject:  {to: model.LoanRejected},
			},
			model.LoanApproved: {
				EventReturn: {to: model.LoanCompleted, stock: +1},
			},
		},
		outcomes: map[Event]model.LoanStatus{
			EventApprove: model.LoanApproved,
			EventReject:  model.LoanRejected,
		},
	}
}

// EventFor memetakan hasil keputusan admin ke event.
func (m *Machine) EventFor(outcome model.LoanStatus) (Event, error) {
	for ev, st := range m.outcomes {
		if st == outcome {
			return ev, nil
		}
	}
	return "", apperror.Validation("status keputusan harus 'disetujui' atau 'ditolak'")
}

// Next mengembalikan status tujuan untuk event dari status from.
func (m *Machine) Next(from model.LoanStatus, ev Event) (model.LoanStatus, error) {
	if t, ok := m.table[from][ev]; ok {
		return t.to, nil
	}
	if outcome, ok := m.outcomes[ev]; ok && outcome == from {
		return from, ErrAlreadyApplied
	}
	return from, apperror.InvalidState(invalidMessage(from, ev))
}

// StockDelta menghitung perubahan stok untuk event dengan kuantitas qty.
func (m *Machine) StockDelta(from model.LoanStatus, ev Event, qty int) int {
	t, ok := m.table[from][ev]
	if !ok {
		return 0
	}
	return t.stock * qty
}

func invalidMessage(from model.LoanStatus, ev Event) string {
	switch ev {
	case EventReturn:
		if from == model.LoanCompleted {
			return "peminjaman sudah dikembalikan"
		}
		return "hanya peminjaman yang disetujui yang dapat dikembalikan"
	case EventApprove, EventReject:
		return fmt.Sprintf("peminjaman sudah diputuskan dengan status '%s'", from)
	}
	return fmt.Sprintf("transisi '%s' tidak valid dari status '%s'", ev, from)
}
