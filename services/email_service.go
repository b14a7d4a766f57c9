package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/BirdScout/bird-scout-backend/config"
	"github.com/BirdScout/bird-scout-backend/logger"
	"github.com/BirdScout/bird-scout-backend/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/resend/resend-go/v2"
)

type EmailMetrics struct {
	sendLatency prometheus.Histogram
	errorCount  prometheus.Counter
	sentCount   prometheus.Counter
}

// EmailSender notifies participants about join-request decisions.
type EmailSender interface {
	SendDecisionEmail(ctx context.Context, p *types.TourParticipant, tour *types.Tour) error
}

type EmailService struct {
	config  *config.EmailConfig
	client  *resend.Client
	metrics *EmailMetrics
}

func NewEmailService(cfg *config.EmailConfig) *EmailService {
	return NewEmailServiceWithRegistry(cfg, prometheus.DefaultRegisterer)
}

func NewEmailServiceWithRegistry(cfg *config.EmailConfig, reg prometheus.Registerer) *EmailService {
	logger.GetLogger().Infow("Initializing email service", "from", cfg.FromAddress)
	client := resend.NewClient(cfg.ResendAPIKey)
	metrics := &EmailMetrics{
		sendLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "birdscout_email_send_duration_seconds",
			Help:    "Time taken to send emails",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		}),
		errorCount: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "birdscout_email_errors_total",
			Help: "Total number of email sending errors",
		}),
		sentCount: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "birdscout_emails_sent_total",
			Help: "Total number of emails sent",
		}),
	}

	reg.MustRegister(metrics.sendLatency)
	reg.MustRegister(metrics.errorCount)
	reg.MustRegister(metrics.sentCount)

	return &EmailService{
		config:  cfg,
		client:  client,
		metrics: metrics,
	}
}

// SendDecisionEmail tells a participant their join request was approved or
// declined. Only called for decision statuses; other transitions are silent.
func (s *EmailService) SendDecisionEmail(ctx context.Context, p *types.TourParticipant, tour *types.Tour) error {
	startTime := time.Now()
	log := logger.GetLogger()
	defer func() {
		s.metrics.sendLatency.Observe(time.Since(startTime).Seconds())
	}()

	if !p.Status.IsDecision() {
		s.metrics.errorCount.Inc()
		return fmt.Errorf("status %s is not a decision", p.Status)
	}
	if p.UserEmail == "" {
		s.metrics.errorCount.Inc()
		return fmt.Errorf("participant %s has no email on record", p.UserID)
	}

	approved := p.Status == types.ParticipantStatusApproved
	subject := fmt.Sprintf("Your spot on %q is confirmed", tour.Title)
	if !approved {
		subject = fmt.Sprintf("Update on your request to join %q", tour.Title)
	}

	tmpl, err := template.New("decision").Parse(decisionEmailTemplate)
	if err != nil {
		s.metrics.errorCount.Inc()
		log.Errorw("Failed to parse email template", "error", err)
		return fmt.Errorf("failed to parse template: %w", err)
	}

	var htmlContent bytes.Buffer
	err = tmpl.Execute(&htmlContent, map[string]any{
		"UserName":     p.UserName,
		"TourTitle":    tour.Title,
		"Approved":     approved,
		"StartTime":    tour.StartTime.Format("Monday, 2 January 2006 at 15:04"),
		"MeetingPoint": tour.MeetingPoint.Name,
	})
	if err != nil {
		s.metrics.errorCount.Inc()
		log.Errorw("Failed to execute email template", "error", err)
		return fmt.Errorf("failed to execute template: %w", err)
	}

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", s.config.FromName, s.config.FromAddress),
		To:      []string{p.UserEmail},
		Subject: subject,
		Html:    htmlContent.String(),
	}

	_, err = s.client.Emails.Send(params)
	if err != nil {
		s.metrics.errorCount.Inc()
		log.Errorw("Failed to send decision email",
			"error", err,
			"to", logger.MaskEmail(p.UserEmail),
			"tourID", tour.ID)
		return fmt.Errorf("email send failed: %w", err)
	}

	s.metrics.sentCount.Inc()
	log.Infow("Decision email sent",
		"to", logger.MaskEmail(p.UserEmail),
		"tourID", tour.ID,
		"status", p.Status)
	return nil
}

const decisionEmailTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>BirdScout Tour Update</title>
    <style>
        body {
            font-family: 'sans-serif';
            background-color: #f4f8f4;
            color: #333333;
            margin: 0;
            padding: 20px;
            text-align: center;
        }
        .container {
            max-width: 600px;
            margin: 20px auto;
            background-color: #ffffff;
            padding: 30px;
            border-radius: 12px;
            box-shadow: 0 4px 8px rgba(0, 0, 0, 0.05);
        }
        h1 {
            color: #2E7D32;
            font-size: 26px;
            margin-bottom: 20px;
        }
        p {
            font-size: 16px;
            line-height: 1.6;
            margin-bottom: 20px;
        }
        .details {
            font-size: 15px;
            color: #555555;
            background-color: #f4f8f4;
            padding: 15px;
            border-radius: 8px;
        }
    </style>
</head>
<body>
    <div class="container">
        {{if .Approved}}
        <h1>See you out there, {{.UserName}}!</h1>
        <p>Your request to join "{{.TourTitle}}" has been approved by the guide.</p>
        <div class="details">
            <p>{{.StartTime}}<br/>Meeting point: {{.MeetingPoint}}</p>
        </div>
        {{else}}
        <h1>About "{{.TourTitle}}"</h1>
        <p>Hi {{.UserName}}, unfortunately the guide was unable to approve your
        request to join this tour. Keep an eye out for other tours near you.</p>
        {{end}}
    </div>
</body>
</html>`
