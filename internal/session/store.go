package session

import (
	"sync"

	"github.com/ledgerbot-dev/ledgerbot/internal/entity"
)

// Step is the tagged state of a multi-step conversation.
type Step string

const (
	StepAwaitingAmount        Step = "awaiting_amount"
	StepAwaitingDescription   Step = "awaiting_description"
	StepAwaitingPaymentMethod Step = "awaiting_payment_method"
	StepConfirmingExtraction  Step = "confirming_extraction"
)

// State is what the front end needs to resume a conversation: where the user
// is in the flow and, for extraction confirmations, the candidate and the
// receipt it came from.
type State struct {
	Step      Step
	ReceiptID int64
	Candidate *entity.Candidate
}

// Store keeps per-conversation state behind a mutex, keyed by conversation
// (chat) id. It replaces ad-hoc global session maps so the flow can be tested
// in isolation.
type Store struct {
	mu       sync.RWMutex
	sessions map[int64]State
}

func NewStore() *Store {
	return &Store{sessions: make(map[int64]State)}
}

func (s *Store) Put(chatID int64, state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[chatID] = state
}

func (s *Store) Get(chatID int64) (State, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.sessions[chatID]
	return state, ok
}

func (s *Store) Delete(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, chatID)
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
