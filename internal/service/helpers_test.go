package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/Skotchmaster/storefront/internal/db/dbtest"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
)

func newTestRepo(t *testing.T) *repo.GormRepo {
	t.Helper()
	return &repo.GormRepo{DB: dbtest.InitTestDB(t)}
}

type sentMail struct {
	To, Subject, Body string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *fakeMailer) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

type published struct {
	Topic, Key string
	Event      any
}

type fakePublisher struct {
	mu     sync.Mutex
	events []published
	err    error
}

func (p *fakePublisher) PublishEvent(_ context.Context, topic, key string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{Topic: topic, Key: key, Event: event})
	return p.err
}

type fakeImages struct {
	saved   []string
	removed []string
	err     error
}

func (f *fakeImages) Save(filename string, r io.Reader) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	p := "/static/uploads/" + filename
	f.saved = append(f.saved, p)
	return p, nil
}

func (f *fakeImages) Remove(p string) error {
	f.removed = append(f.removed, p)
	return nil
}

type fakeIndex struct {
	indexed map[uint]models.Product
	err     error
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{indexed: map[uint]models.Product{}}
}

func (f *fakeIndex) IndexProduct(_ context.Context, p *models.Product) error {
	f.indexed[p.ID] = *p
	return nil
}

func (f *fakeIndex) DeleteProduct(_ context.Context, id uint) error {
	delete(f.indexed, id)
	return nil
}

func (f *fakeIndex) Search(_ context.Context, q string, from, size int) (int64, []models.Product, error) {
	if f.err != nil {
		return 0, nil, f.err
	}
	out := []models.Product{}
	for _, p := range f.indexed {
		out = append(out, p)
	}
	return int64(len(out)), out, nil
}

var errBoom = errors.New("boom")
