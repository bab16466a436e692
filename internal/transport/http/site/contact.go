package sitehttp

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"diagnoseme/internal/gateway/mailer"
	"diagnoseme/internal/logger"
	"diagnoseme/internal/metrics"
	"diagnoseme/internal/store/model"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

const (
	contactMaxBody     = 64 << 10
	errMessageTooLarge = "Message too large"
	mailTimeout        = 10 * time.Second
	errContactFailed   = "Failed to send message"
)

type contactRequest struct {
	Name    string `json:"name" form:"name" binding:"required,max=100"`
	Email   string `json:"email" form:"email" binding:"required,email,max=254"`
	Subject string `json:"subject" form:"subject" binding:"required,max=200"`
	Message string `json:"message" form:"message" binding:"required,max=5000"`
}

func (r *contactRequest) trim() map[string]string {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	r.Subject = strings.TrimSpace(r.Subject)
	r.Message = strings.TrimSpace(r.Message)
	missing := map[string]string{}
	for field, v := range map[string]string{"name": r.Name, "email": r.Email, "subject": r.Subject, "message": r.Message} {
		if v == "" {
			missing[field] = "is required"
		}
	}
	return missing
}

// handleContact stores the message and forwards it by mail when configured.
// Either one succeeding is enough to accept the message.
func (h *handlers) handleContact(c *gin.Context) {
	var req contactRequest
	if err := c.ShouldBind(&req); err != nil {
		if isTooLarge(err) {
			abortTooLarge(c, errMessageTooLarge)
			return
		}
		metrics.ContactMessages.WithLabelValues("invalid").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid contact form", "fields": fieldErrors(err)})
		return
	}
	if missing := req.trim(); len(missing) > 0 {
		metrics.ContactMessages.WithLabelValues("invalid").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid contact form", "fields": missing})
		return
	}

	if !h.cfg.Store.Enabled() && !h.cfg.Mailer.Enabled() {
		logger.Errorf("contact %s: neither store nor mailer is enabled, message dropped", requestIDFrom(c))
		metrics.ContactMessages.WithLabelValues("failed").Inc()
		c.JSON(http.StatusInternalServerError, gin.H{"error": errContactFailed})
		return
	}

	msg := &model.ContactModel{
		Name:    req.Name,
		Email:   req.Email,
		Subject: req.Subject,
		Message: req.Message,
	}
	if h.cfg.Mailer.Enabled() {
		ctx, cancel := context.WithTimeout(c.Request.Context(), mailTimeout)
		err := h.cfg.Mailer.Send(ctx, mailer.Message{Name: req.Name, Email: req.Email, Subject: req.Subject, Body: req.Message})
		cancel()
		if err != nil {
			msg.DeliveryError = err.Error()
			logger.Warnf("contact %s: mail delivery failed: %v", requestIDFrom(c), err)
		} else {
			msg.Delivered = true
		}
	}

	stored := false
	if h.cfg.Store.Enabled() {
		if err := h.cfg.Store.SaveContact(c.Request.Context(), msg); err != nil {
			logger.Errorf("contact %s: save failed: %v", requestIDFrom(c), err)
		} else {
			stored = true
		}
	}
	if !stored && !msg.Delivered {
		metrics.ContactMessages.WithLabelValues("failed").Inc()
		c.JSON(http.StatusInternalServerError, gin.H{"error": errContactFailed})
		return
	}
	status := "stored"
	if msg.Delivered {
		status = "delivered"
	}
	metrics.ContactMessages.WithLabelValues(status).Inc()
	c.JSON(http.StatusAccepted, gin.H{"status": "received", "id": msg.ID})
}

func fieldErrors(err error) map[string]string {
	out := map[string]string{}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		out["body"] = "could not be decoded"
		return out
	}
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			out[field] = "is required"
		case "email":
			out[field] = "must be a valid email address"
		case "max":
			out[field] = "must be at most " + fe.Param() + " characters"
		default:
			out[field] = "is invalid"
		}
	}
	return out
}
