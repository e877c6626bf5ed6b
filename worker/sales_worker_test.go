package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seo-checkout-api/queue"
	"seo-checkout-api/services/email"
)

type fakeMailer struct {
	mu       sync.Mutex
	sales    []string
	acks     []string
	salesErr error
	ackErr   error
}

func (m *fakeMailer) SendEmail(to, subject, htmlBody, plainBody string) error {
	return nil
}

func (m *fakeMailer) SendSalesLead(to string, lead email.SalesLead) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.salesErr != nil {
		return m.salesErr
	}
	m.sales = append(m.sales, to)
	return nil
}

func (m *fakeMailer) SendContactAcknowledgement(to string, lead email.SalesLead) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ackErr != nil {
		return m.ackErr
	}
	m.acks = append(m.acks, to)
	return nil
}

func (m *fakeMailer) counts() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sales), len(m.acks)
}

func testLead() email.SalesLead {
	return email.SalesLead{
		ReferenceID:  "ref-1",
		Name:         "Jane Doe",
		Email:        "jane@example.com",
		Company:      "Acme",
		PlanName:     "Enterprise",
		BillingCycle: "annual",
		Currency:     "USD",
	}
}

func TestLeadRoundTripThroughJobData(t *testing.T) {
	lead := testLead()
	lead.AcceptMarketing = true
	job := &queue.Job{Data: LeadToJobData(lead)}
	assert.Equal(t, lead, LeadFromJob(job))
}

func TestProcessJob_ContactSales(t *testing.T) {
	m := &fakeMailer{}
	w := NewWorker(nil, m, "sales@example.com")

	job := &queue.Job{Type: queue.JobTypeContactSales, Data: LeadToJobData(testLead())}
	require.NoError(t, w.ProcessJob(job))

	assert.Equal(t, []string{"sales@example.com"}, m.sales)
	assert.Equal(t, []string{"jane@example.com"}, m.acks)
}

func TestProcessJob_AckFailureDoesNotResendSales(t *testing.T) {
	m := &fakeMailer{ackErr: errors.New("mailbox full")}
	w := NewWorker(nil, m, "sales@example.com")

	job := &queue.Job{Type: queue.JobTypeContactSales, Data: LeadToJobData(testLead())}
	require.Error(t, w.ProcessJob(job))
	assert.True(t, job.Bool("sales_notified"))

	m.ackErr = nil
	require.NoError(t, w.ProcessJob(job))

	sales, acks := m.counts()
	assert.Equal(t, 1, sales)
	assert.Equal(t, 1, acks)
}

func TestProcessJob_Errors(t *testing.T) {
	w := NewWorker(nil, &fakeMailer{}, "sales@example.com")

	err := w.ProcessJob(&queue.Job{Type: "bogus", Data: map[string]interface{}{}})
	assert.ErrorContains(t, err, "unknown job type")

	err = w.ProcessJob(&queue.Job{Type: queue.JobTypeContactSales, Data: map[string]interface{}{}})
	assert.ErrorContains(t, err, "invalid email")

	noInbox := NewWorker(nil, &fakeMailer{}, "")
	err = noInbox.ProcessJob(&queue.Job{Type: queue.JobTypeContactSales, Data: LeadToJobData(testLead())})
	assert.ErrorContains(t, err, "sales inbox")
}

func TestWorker_StartStop(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	q := queue.NewQueueWithClient(client, "sales_jobs")

	_, err := q.Enqueue(context.Background(), queue.JobTypeContactSales, LeadToJobData(testLead()))
	require.NoError(t, err)

	m := &fakeMailer{}
	w := NewWorker(q, m, "sales@example.com")
	w.pollTimeout = time.Second
	w.Start(2)

	require.Eventually(t, func() bool {
		_, acks := m.counts()
		return acks == 1
	}, 5*time.Second, 20*time.Millisecond)

	w.Stop()
	w.Stop()

	n, err := q.Len(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}
