package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	mu      sync.Mutex
	to      []string
	subject []string
	body    []string
	err     error
}

func (s *recordingSender) Send(_ context.Context, to, subject, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.to = append(s.to, to)
	s.subject = append(s.subject, subject)
	s.body = append(s.body, body)
	return s.err
}

type flakyDeliverer struct {
	mu        sync.Mutex
	failFirst int
	calls     int
	delivered []Event
}

func (d *flakyDeliverer) Deliver(_ context.Context, event Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if d.calls <= d.failFirst {
		return errors.New("smtp unavailable")
	}
	d.delivered = append(d.delivered, event)
	return nil
}

func (d *flakyDeliverer) snapshot() (int, []Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls, append([]Event(nil), d.delivered...)
}

func TestTemplates_Render(t *testing.T) {
	tmpl, err := NewTemplates()
	require.NoError(t, err)

	tests := []struct {
		name        string
		event       Event
		wantSubject string
		wantParts   []string
	}{
		{
			name: "booking confirmed",
			event: Event{Kind: KindBookingConfirmed, To: "a@b.c", Data: map[string]string{
				FieldName: "An", FieldDoctor: "Binh", FieldSpecialty: "Cardiology",
				FieldTime: "10/03/2030 09:00", FieldReason: "checkup",
			}},
			wantSubject: "Appointment confirmation",
			wantParts:   []string{"Hello An", "Dr. Binh", "Cardiology", "10/03/2030 09:00", "checkup"},
		},
		{
			name: "canceled",
			event: Event{Kind: KindBookingCanceled, Data: map[string]string{
				FieldName: "An", FieldCancelReason: "No reason",
			}},
			wantSubject: "Appointment cancellation",
			wantParts:   []string{"No reason"},
		},
		{
			name: "diagnosis",
			event: Event{Kind: KindDiagnosisReady, Data: map[string]string{
				FieldDiagnosis: "flu", FieldNotes: "rest",
			}},
			wantSubject: "Your examination results",
			wantParts:   []string{"flu", "rest"},
		},
		{
			name:        "password without data",
			event:       Event{Kind: KindPasswordChanged},
			wantSubject: "Password changed",
			wantParts:   []string{"changed successfully"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subject, body, err := tmpl.Render(tt.event)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSubject, subject)
			for _, part := range tt.wantParts {
				assert.Contains(t, body, part)
			}
		})
	}
}

func TestTemplates_EscapesValues(t *testing.T) {
	tmpl, err := NewTemplates()
	require.NoError(t, err)

	_, body, err := tmpl.Render(Event{Kind: KindBookingConfirmed, Data: map[string]string{
		FieldReason: "<script>alert(1)</script>",
	}})
	require.NoError(t, err)
	assert.NotContains(t, body, "<script>")
	assert.Contains(t, body, "&lt;script&gt;")
}

func TestTemplates_UnknownKind(t *testing.T) {
	tmpl, err := NewTemplates()
	require.NoError(t, err)

	_, _, err = tmpl.Render(Event{Kind: "invoice.sent"})
	assert.Error(t, err)
}

func TestMailer_Deliver(t *testing.T) {
	tmpl, err := NewTemplates()
	require.NoError(t, err)

	t.Run("renders and sends", func(t *testing.T) {
		sender := &recordingSender{}
		m := NewMailer(tmpl, sender)

		err := m.Deliver(context.Background(), Event{Kind: KindPasswordChanged, To: "u@clinic.com", Data: map[string]string{FieldName: "U"}})
		require.NoError(t, err)
		assert.Equal(t, []string{"u@clinic.com"}, sender.to)
		assert.Equal(t, []string{"Password changed"}, sender.subject)
	})

	t.Run("missing recipient", func(t *testing.T) {
		sender := &recordingSender{}
		m := NewMailer(tmpl, sender)

		err := m.Deliver(context.Background(), Event{Kind: KindPasswordChanged})
		assert.Error(t, err)
		assert.Empty(t, sender.to)
	})

	t.Run("sender error propagates", func(t *testing.T) {
		sender := &recordingSender{err: errors.New("refused")}
		m := NewMailer(tmpl, sender)

		err := m.Deliver(context.Background(), Event{Kind: KindPasswordChanged, To: "u@clinic.com"})
		assert.EqualError(t, err, "refused")
	})
}

func TestAsyncDispatcher_RetriesUntilDelivered(t *testing.T) {
	d := &flakyDeliverer{failFirst: 2}
	dispatcher := NewAsyncDispatcher(d, AsyncOptions{Workers: 1, Retries: 3, Backoff: time.Millisecond}, zerolog.Nop())

	require.NoError(t, dispatcher.Dispatch(context.Background(), Event{Kind: KindBookingConfirmed, To: "a@b.c"}))
	dispatcher.Close()

	calls, delivered := d.snapshot()
	assert.Equal(t, 3, calls)
	require.Len(t, delivered, 1)
	assert.Equal(t, "a@b.c", delivered[0].To)
}

func TestAsyncDispatcher_GivesUpAfterRetries(t *testing.T) {
	d := &flakyDeliverer{failFirst: 100}
	dispatcher := NewAsyncDispatcher(d, AsyncOptions{Workers: 1, Retries: 2, Backoff: time.Millisecond}, zerolog.Nop())

	require.NoError(t, dispatcher.Dispatch(context.Background(), Event{Kind: KindBookingCanceled, To: "a@b.c"}))
	dispatcher.Close()

	calls, delivered := d.snapshot()
	assert.Equal(t, 3, calls)
	assert.Empty(t, delivered)
}

func TestAsyncDispatcher_CloseDrainsQueue(t *testing.T) {
	d := &flakyDeliverer{}
	dispatcher := NewAsyncDispatcher(d, AsyncOptions{Workers: 2, Buffer: 10}, zerolog.Nop())

	for i := 0; i < 5; i++ {
		require.NoError(t, dispatcher.Dispatch(context.Background(), Event{Kind: KindDiagnosisReady, To: "p@clinic.com"}))
	}
	dispatcher.Close()

	_, delivered := d.snapshot()
	assert.Len(t, delivered, 5)

	err := dispatcher.Dispatch(context.Background(), Event{Kind: KindDiagnosisReady, To: "p@clinic.com"})
	assert.ErrorIs(t, err, ErrDispatcherClosed)
	dispatcher.Close()
}

type blockingDeliverer struct {
	release chan struct{}
}

func (d *blockingDeliverer) Deliver(context.Context, Event) error {
	<-d.release
	return nil
}

func TestAsyncDispatcher_QueueFull(t *testing.T) {
	d := &blockingDeliverer{release: make(chan struct{})}
	dispatcher := NewAsyncDispatcher(d, AsyncOptions{Workers: 1, Buffer: 1}, zerolog.Nop())

	var full bool
	for i := 0; i < 5; i++ {
		if err := dispatcher.Dispatch(context.Background(), Event{Kind: KindBookingConfirmed, To: "x@y.z"}); errors.Is(err, ErrQueueFull) {
			full = true
			break
		}
	}
	assert.True(t, full)

	close(d.release)
	dispatcher.Close()
}

func TestConsumer_Handle(t *testing.T) {
	d := &flakyDeliverer{}
	c := NewConsumer(ConsumerConfig{Exchange: "clinic.events", Queue: "clinic.notifications"}, d, zerolog.Nop())

	err := c.Handle(context.Background(), []byte(`{"kind":"booking.confirmed","to":"a@b.c","data":{"name":"An"}}`))
	require.NoError(t, err)
	_, delivered := d.snapshot()
	require.Len(t, delivered, 1)
	assert.Equal(t, KindBookingConfirmed, delivered[0].Kind)
	assert.Equal(t, "An", delivered[0].Data[FieldName])

	assert.Error(t, c.Handle(context.Background(), []byte("not json")))
}

func TestConsumerConfig_DeadLetterNames(t *testing.T) {
	cfg := ConsumerConfig{Exchange: "clinic.events", Queue: "clinic.notifications"}
	assert.Equal(t, "clinic.events.dlx", cfg.deadLetterExchange())
	assert.Equal(t, "clinic.notifications.dead", cfg.deadLetterQueue())
}
