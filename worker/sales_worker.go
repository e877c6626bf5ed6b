package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"seo-checkout-api/queue"
	"seo-checkout-api/services/email"
)

// JobQueue is the subset of *queue.Queue the worker drives.
type JobQueue interface {
	Dequeue(ctx context.Context, timeout time.Duration) (*queue.Job, error)
	CompleteJob(ctx context.Context, job *queue.Job) error
	FailJob(ctx context.Context, job *queue.Job, err error) error
	ProcessDelayedJobs(ctx context.Context) (int, error)
}

// Worker delivers queued contact-sales requests by email.
type Worker struct {
	queue      JobQueue
	mailer     email.EmailSender
	salesEmail string

	pollTimeout   time.Duration
	delayInterval time.Duration

	shutdown chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
	running  bool
}

func NewWorker(q JobQueue, mailer email.EmailSender, salesEmail string) *Worker {
	return &Worker{
		queue:         q,
		mailer:        mailer,
		salesEmail:    salesEmail,
		pollTimeout:   5 * time.Second,
		delayInterval: 10 * time.Second,
		shutdown:      make(chan struct{}),
	}
}

func (w *Worker) Start(concurrency int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return
	}
	w.running = true

	for i := 0; i < concurrency; i++ {
		w.wg.Add(1)
		go w.processJobs(i)
	}

	w.wg.Add(1)
	go w.promoteDelayed()

	slog.Info("started worker goroutines", "count", concurrency)
}

// Stop signals all goroutines and waits for in-progress jobs to finish.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.shutdown)
	w.mu.Unlock()

	slog.Info("stopping worker")
	w.wg.Wait()
}

func (w *Worker) processJobs(workerID int) {
	defer w.wg.Done()
	log := slog.With("worker_id", workerID)

	for {
		select {
		case <-w.shutdown:
			log.Info("worker shutting down")
			return
		default:
		}

		ctx, cancel := context.WithTimeout(context.Background(), w.pollTimeout+5*time.Second)
		job, err := w.queue.Dequeue(ctx, w.pollTimeout)
		cancel()

		if err != nil {
			log.Error("error dequeuing job", "error", err)
			w.sleep(time.Second)
			continue
		}
		if job == nil {
			continue
		}

		log.Info("processing job", "job_id", job.ID, "type", job.Type)

		if jobErr := w.ProcessJob(job); jobErr != nil {
			log.Error("error processing job", "job_id", job.ID, "error", jobErr)

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := w.queue.FailJob(ctx, job, jobErr); err != nil {
				log.Error("error marking job as failed", "job_id", job.ID, "error", err)
			}
			cancel()
			continue
		}

		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		if err := w.queue.CompleteJob(ctx, job); err != nil {
			log.Error("error marking job as complete", "job_id", job.ID, "error", err)
		}
		cancel()
	}
}

func (w *Worker) promoteDelayed() {
	defer w.wg.Done()
	ticker := time.NewTicker(w.delayInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.shutdown:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			moved, err := w.queue.ProcessDelayedJobs(ctx)
			cancel()
			if err != nil {
				slog.Error("error promoting delayed jobs", "error", err)
			} else if moved > 0 {
				slog.Info("requeued delayed jobs", "count", moved)
			}
		}
	}
}

func (w *Worker) sleep(d time.Duration) {
	select {
	case <-w.shutdown:
	case <-time.After(d):
	}
}

func (w *Worker) ProcessJob(job *queue.Job) error {
	switch job.Type {
	case queue.JobTypeContactSales:
		return w.processContactSales(job)
	default:
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

func (w *Worker) processContactSales(job *queue.Job) error {
	lead := LeadFromJob(job)
	if lead.Email == "" {
		return fmt.Errorf("invalid email in job data")
	}

	// The sales copy goes out first; the acknowledgement is only sent once
	// sales has the lead, and a retry after that point resends only it.
	if !job.Bool("sales_notified") {
		if w.salesEmail == "" {
			return fmt.Errorf("sales inbox is not configured")
		}
		if err := w.mailer.SendSalesLead(w.salesEmail, lead); err != nil {
			return fmt.Errorf("failed to notify sales: %w", err)
		}
		job.Data["sales_notified"] = true
	}

	if err := w.mailer.SendContactAcknowledgement(lead.Email, lead); err != nil {
		return fmt.Errorf("failed to send acknowledgement: %w", err)
	}
	return nil
}

// LeadToJobData flattens a lead into queue job data.
func LeadToJobData(lead email.SalesLead) map[string]interface{} {
	return map[string]interface{}{
		"reference_id":     lead.ReferenceID,
		"name":             lead.Name,
		"email":            lead.Email,
		"company":          lead.Company,
		"phone":            lead.Phone,
		"country":          lead.Country,
		"message":          lead.Message,
		"plan_name":        lead.PlanName,
		"billing_cycle":    lead.BillingCycle,
		"currency":         lead.Currency,
		"accept_marketing": lead.AcceptMarketing,
	}
}

func LeadFromJob(job *queue.Job) email.SalesLead {
	return email.SalesLead{
		ReferenceID:     job.String("reference_id"),
		Name:            job.String("name"),
		Email:           job.String("email"),
		Company:         job.String("company"),
		Phone:           job.String("phone"),
		Country:         job.String("country"),
		Message:         job.String("message"),
		PlanName:        job.String("plan_name"),
		BillingCycle:    job.String("billing_cycle"),
		Currency:        job.String("currency"),
		AcceptMarketing: job.Bool("accept_marketing"),
	}
}
