package service

import (
	"sync"

	"consultly/internal/models"
)

// BoardQuery is one list request issued by a board.
type BoardQuery struct {
	Filter     models.BookingFilter
	Generation uint64
}

// BookingBoard is the list state behind one booking screen. Only the response
// to the latest query is applied; earlier ones are dropped.
type BookingBoard struct {
	mu         sync.Mutex
	filter     models.BookingFilter
	generation uint64
}

func NewBookingBoard(initial *models.BookingFilter) *BookingBoard {
	f := models.DefaultBookingFilter()
	if initial != nil {
		f = initial.Normalize()
	}
	return &BookingBoard{filter: f}
}

// Query moves the board to next and returns the request to issue.
func (b *BookingBoard) Query(next models.BookingFilter) BoardQuery {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.filter = b.filter.Apply(next)
	b.generation++
	return BoardQuery{Filter: b.filter, Generation: b.generation}
}

// Latest reports whether q is still the newest query of the board.
func (b *BookingBoard) Latest(q BoardQuery) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return q.Generation == b.generation
}

// Boards keeps one board per session.
type Boards struct {
	mu     sync.Mutex
	boards map[string]*BookingBoard
}

func NewBoards() *Boards {
	return &Boards{boards: make(map[string]*BookingBoard)}
}

func (b *Boards) For(sess *models.Session) *BookingBoard {
	b.mu.Lock()
	defer b.mu.Unlock()
	board, ok := b.boards[sess.ID]
	if !ok {
		board = NewBookingBoard(sess.LastFilter)
		b.boards[sess.ID] = board
	}
	return board
}

func (b *Boards) Drop(sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.boards, sessionID)
}
