package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"media-picker/internal/mediatypes"
	"media-picker/internal/repository"
)

// ErrNoSession is returned when no picker session is open.
var ErrNoSession = errors.New("no picker session is open")

// PickRequest describes what the platform picker should offer.
type PickRequest struct {
	ID        string               `json:"id"`
	Limit     int                  `json:"limit"`
	MediaType mediatypes.MediaType `json:"mediaType"`
	Filters   []string             `json:"filters"`
}

// Picker is the platform's media picker. It blocks until the user selects
// or cancels. A cancel returns an empty selection and no error.
type Picker interface {
	Pick(ctx context.Context, req PickRequest) ([]repository.Reference, error)
}

// Session is an open picker session as seen by the UI.
type Session struct {
	PickRequest
	OpenedAt time.Time `json:"openedAt"`
}

type pending struct {
	session Session
	result  chan []repository.Reference
}

// ChannelPicker is a Picker completed from outside, for example by an HTTP
// client acting as the picker UI.
type ChannelPicker struct {
	mu      sync.Mutex
	current *pending
}

// NewChannelPicker returns an idle ChannelPicker.
func NewChannelPicker() *ChannelPicker {
	return &ChannelPicker{}
}

// Pick opens a session and waits for Complete or Cancel.
func (p *ChannelPicker) Pick(ctx context.Context, req PickRequest) ([]repository.Reference, error) {
	s := &pending{
		session: Session{PickRequest: req, OpenedAt: time.Now()},
		result:  make(chan []repository.Reference, 1),
	}

	p.mu.Lock()
	p.current = s
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		if p.current == s {
			p.current = nil
		}
		p.mu.Unlock()
	}()

	select {
	case refs := <-s.result:
		return refs, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Current returns the open session.
func (p *ChannelPicker) Current() (Session, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return Session{}, false
	}
	return p.current.session, true
}

// Complete ends the open session with refs.
func (p *ChannelPicker) Complete(refs []repository.Reference) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return ErrNoSession
	}
	p.current.result <- refs
	p.current = nil
	return nil
}

// Cancel ends the open session with an empty selection.
func (p *ChannelPicker) Cancel() error {
	return p.Complete(nil)
}
