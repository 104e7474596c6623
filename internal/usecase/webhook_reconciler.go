package usecase

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/eadhub/eadhub-payments/internal/entity"
	"github.com/eadhub/eadhub-payments/internal/infra/integration/stripe"
)

// WebhookReconciler turns verified gateway events into local state. Every
// mutation runs inside a single transaction; notifications go out only
// after the transaction commits. All handlers are idempotent: redelivering
// an already-applied event is a no-op, and events referencing rows we do
// not know are skipped without error so the gateway stops retrying them.
type WebhookReconciler struct {
	Store Store
	Queue QueueProducerInterface
}

func NewWebhookReconciler(store Store, queue QueueProducerInterface) *WebhookReconciler {
	return &WebhookReconciler{Store: store, Queue: queue}
}

// HandleEvent dispatches a verified event to its handler. Unknown event
// types are acknowledged and ignored.
func (r *WebhookReconciler) HandleEvent(ctx context.Context, event *stripe.Event) error {
	switch event.Type {
	case stripe.EventPaymentIntentSucceeded:
		return r.HandlePixPaymentSucceeded(ctx, event)
	case stripe.EventCheckoutSessionCompleted:
		return r.HandleCheckoutSessionCompleted(ctx, event)
	case stripe.EventSubscriptionCreated:
		return r.HandleSubscriptionCreated(ctx, event)
	case stripe.EventSubscriptionUpdated:
		return r.HandleSubscriptionUpdated(ctx, event)
	case stripe.EventSubscriptionDeleted:
		return r.HandleSubscriptionDeleted(ctx, event)
	case stripe.EventInvoicePaymentSucceeded:
		return r.HandlePaymentSucceeded(ctx, event)
	case stripe.EventInvoicePaymentFailed:
		return r.HandlePaymentFailed(ctx, event)
	default:
		log.Printf("[webhook] ignoring event type=%s id=%s", event.Type, event.ID)
		return nil
	}
}

// HandlePixPaymentSucceeded settles a PIX charge: marks the payment paid,
// creates or activates the subscription, writes the ledger row and updates
// the student projection, all in one transaction.
func (r *WebhookReconciler) HandlePixPaymentSucceeded(ctx context.Context, event *stripe.Event) error {
	intent, err := event.PaymentIntent()
	if err != nil {
		return &TechnicalError{Code: "WEBHOOK_PAYLOAD_ERROR", Message: "malformed payment_intent payload", Err: err}
	}

	// Card intents also emit payment_intent.succeeded; those settle through
	// checkout.session.completed instead.
	if !intent.HasMethodType("pix") {
		return nil
	}

	var confirmation *SubscriptionConfirmedEmail

	err = r.Store.WithinTx(ctx, func(tx Tx) error {
		payment, err := tx.PixPaymentByChargeID(ctx, intent.ID)
		if err != nil {
			return err
		}
		if payment == nil {
			// Intent from another environment or a purged record. Skip so
			// the gateway stops redelivering.
			log.Printf("[webhook] pix intent %s has no local payment, skipping", intent.ID)
			return nil
		}

		updated, err := tx.MarkPixPaymentPaid(ctx, payment.ID, stripe.MarshalIntent(intent))
		if err != nil {
			return err
		}
		if !updated {
			// Already settled by a prior delivery or by status polling.
			log.Printf("[webhook] pix payment %s already settled, skipping", payment.ID)
			return nil
		}

		plan, err := tx.PlanByID(ctx, payment.PlanID)
		if err != nil {
			return err
		}
		if plan == nil {
			return &TechnicalError{Code: "PLAN_MISSING", Message: fmt.Sprintf("pix payment %s references unknown plan %s", payment.ID, payment.PlanID)}
		}

		now := time.Now()
		periodStart, periodEnd := plan.Period(now)
		gatewayRef := "pix_" + payment.ID

		sub, err := tx.SubscriptionByStudentAndStatus(ctx, payment.StudentID, entity.SubscriptionStatusPending, entity.SubscriptionStatusSuspended)
		if err != nil {
			return err
		}
		var subscriptionID string
		if sub != nil {
			if err := tx.ActivateSubscription(ctx, sub.ID, plan.ID, gatewayRef, periodStart, periodEnd); err != nil {
				return err
			}
			subscriptionID = sub.ID
		} else {
			created := entity.NewSubscription(payment.StudentID, plan.ID, entity.SubscriptionStatusActive, gatewayRef, periodStart, periodEnd)
			if err := tx.CreateSubscription(ctx, created); err != nil {
				return err
			}
			subscriptionID = created.ID
		}

		ledger := entity.NewPayment(subscriptionID, payment.FinalAmount, plan.Currency, entity.PaymentStatusPaid, entity.PaymentMethodPix, intent.ID)
		ledger.PixPaymentID = payment.ID
		ledger.PaidAt = &now
		if err := tx.CreatePayment(ctx, ledger); err != nil {
			return err
		}

		if err := tx.UpdateStudentSubscription(ctx, payment.StudentID, entity.SubscriptionStatusActive, &periodEnd); err != nil {
			return err
		}

		student, err := tx.StudentByID(ctx, payment.StudentID)
		if err != nil {
			return err
		}
		if student != nil {
			confirmation = &SubscriptionConfirmedEmail{
				StudentName:  student.Name,
				StudentEmail: student.Email,
				PlanName:     plan.Name,
				Amount:       payment.FinalAmount,
				ExpiresAt:    periodEnd,
			}
		}

		log.Printf("✅ [webhook] pix payment %s confirmed, subscription %s active until %s",
			payment.ID, subscriptionID, periodEnd.Format(time.RFC3339))
		return nil
	})
	if err != nil {
		return err
	}

	if confirmation != nil {
		if err := r.Queue.EnqueueSubscriptionConfirmed(ctx, *confirmation); err != nil {
			log.Printf("[webhook] failed to enqueue confirmation email: %v", err)
		}
	}
	return nil
}

// HandleCheckoutSessionCompleted settles installment card checkouts. These
// sessions run in payment mode (one-off charge) tagged as subscription
// payments; subscription-mode sessions settle through their own
// customer.subscription.* events instead.
func (r *WebhookReconciler) HandleCheckoutSessionCompleted(ctx context.Context, event *stripe.Event) error {
	session, err := event.CheckoutSession()
	if err != nil {
		return &TechnicalError{Code: "WEBHOOK_PAYLOAD_ERROR", Message: "malformed checkout.session payload", Err: err}
	}

	if session.Mode != "payment" || session.Metadata["isSubscriptionPayment"] != "true" {
		return nil
	}

	studentID := session.Metadata["studentId"]
	planID := session.Metadata["planId"]
	if studentID == "" || planID == "" {
		log.Printf("[webhook] checkout session %s missing metadata, skipping", session.ID)
		return nil
	}

	gatewayRef := "checkout_" + session.ID
	amount := float64(session.AmountTotal) / 100

	return r.Store.WithinTx(ctx, func(tx Tx) error {
		// Redelivery guard: the synthesized reference is written exactly once.
		existing, err := tx.SubscriptionByGatewayID(ctx, gatewayRef)
		if err != nil {
			return err
		}
		if existing != nil {
			return nil
		}

		plan, err := tx.PlanByID(ctx, planID)
		if err != nil {
			return err
		}
		if plan == nil {
			log.Printf("[webhook] checkout session %s references unknown plan %s, skipping", session.ID, planID)
			return nil
		}

		now := time.Now()
		var subscriptionID string
		var periodEnd time.Time

		active, err := tx.SubscriptionByStudentAndStatus(ctx, studentID, entity.SubscriptionStatusActive)
		if err != nil {
			return err
		}
		if active != nil {
			// Paying again while active extends the current period.
			_, end := plan.Period(active.CurrentPeriodEnd)
			days := int(end.Sub(active.CurrentPeriodEnd).Hours() / 24)
			if err := tx.ExtendSubscriptionPeriod(ctx, active.ID, days); err != nil {
				return err
			}
			subscriptionID = active.ID
			periodEnd = end
		} else {
			start, end := plan.Period(now)
			created := entity.NewSubscription(studentID, plan.ID, entity.SubscriptionStatusActive, gatewayRef, start, end)
			if err := tx.CreateSubscription(ctx, created); err != nil {
				return err
			}
			subscriptionID = created.ID
			periodEnd = end
		}

		ledger := entity.NewPayment(subscriptionID, amount, plan.Currency, entity.PaymentStatusPaid, entity.PaymentMethodCard, session.PaymentIntent)
		ledger.PaidAt = &now
		if err := tx.CreatePayment(ctx, ledger); err != nil {
			return err
		}

		if err := tx.UpdateStudentSubscription(ctx, studentID, entity.SubscriptionStatusActive, &periodEnd); err != nil {
			return err
		}

		log.Printf("✅ [webhook] checkout session %s settled, subscription %s active until %s",
			session.ID, subscriptionID, periodEnd.Format(time.RFC3339))
		return nil
	})
}

func (r *WebhookReconciler) HandleSubscriptionCreated(ctx context.Context, event *stripe.Event) error {
	gwSub, err := event.Subscription()
	if err != nil {
		return &TechnicalError{Code: "WEBHOOK_PAYLOAD_ERROR", Message: "malformed subscription payload", Err: err}
	}

	studentID := gwSub.Metadata["studentId"]
	planID := gwSub.Metadata["planId"]
	if studentID == "" || planID == "" {
		log.Printf("[webhook] subscription %s missing metadata, skipping", gwSub.ID)
		return nil
	}

	status := mapGatewaySubscriptionStatus(gwSub.Status)
	periodStart := time.Unix(gwSub.CurrentPeriodStart, 0)
	periodEnd := time.Unix(gwSub.CurrentPeriodEnd, 0)

	return r.Store.WithinTx(ctx, func(tx Tx) error {
		existing, err := tx.SubscriptionByGatewayID(ctx, gwSub.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return nil
		}

		// A checkout started through the API leaves a pending row keyed by
		// the session id. Adopt it instead of creating a duplicate, stamping
		// the real gateway subscription id so later invoice events find it.
		if status == entity.SubscriptionStatusActive {
			pending, err := tx.SubscriptionByStudentAndStatus(ctx, studentID, entity.SubscriptionStatusPending)
			if err != nil {
				return err
			}
			if pending != nil {
				if err := tx.ActivateSubscription(ctx, pending.ID, planID, gwSub.ID, periodStart, periodEnd); err != nil {
					return err
				}
				log.Printf("[webhook] gateway subscription %s activated pending subscription %s student=%s", gwSub.ID, pending.ID, studentID)
				return tx.UpdateStudentSubscription(ctx, studentID, status, &periodEnd)
			}
		}

		created := entity.NewSubscription(studentID, planID, status, gwSub.ID, periodStart, periodEnd)
		if err := tx.CreateSubscription(ctx, created); err != nil {
			return err
		}
		if status == entity.SubscriptionStatusActive {
			if err := tx.UpdateStudentSubscription(ctx, studentID, status, &periodEnd); err != nil {
				return err
			}
		}
		log.Printf("[webhook] gateway subscription %s created status=%s student=%s", gwSub.ID, status, studentID)
		return nil
	})
}

func (r *WebhookReconciler) HandleSubscriptionUpdated(ctx context.Context, event *stripe.Event) error {
	gwSub, err := event.Subscription()
	if err != nil {
		return &TechnicalError{Code: "WEBHOOK_PAYLOAD_ERROR", Message: "malformed subscription payload", Err: err}
	}

	status := mapGatewaySubscriptionStatus(gwSub.Status)
	periodStart := time.Unix(gwSub.CurrentPeriodStart, 0)
	periodEnd := time.Unix(gwSub.CurrentPeriodEnd, 0)

	return r.Store.WithinTx(ctx, func(tx Tx) error {
		studentID, err := tx.UpdateSubscriptionByGatewayID(ctx, gwSub.ID, status, periodStart, periodEnd)
		if err != nil {
			return err
		}
		if studentID == "" {
			log.Printf("[webhook] gateway subscription %s unknown locally, skipping update", gwSub.ID)
			return nil
		}
		return tx.UpdateStudentSubscription(ctx, studentID, status, &periodEnd)
	})
}

func (r *WebhookReconciler) HandleSubscriptionDeleted(ctx context.Context, event *stripe.Event) error {
	gwSub, err := event.Subscription()
	if err != nil {
		return &TechnicalError{Code: "WEBHOOK_PAYLOAD_ERROR", Message: "malformed subscription payload", Err: err}
	}

	periodStart := time.Unix(gwSub.CurrentPeriodStart, 0)
	periodEnd := time.Unix(gwSub.CurrentPeriodEnd, 0)

	return r.Store.WithinTx(ctx, func(tx Tx) error {
		studentID, err := tx.UpdateSubscriptionByGatewayID(ctx, gwSub.ID, entity.SubscriptionStatusCancelled, periodStart, periodEnd)
		if err != nil {
			return err
		}
		if studentID == "" {
			log.Printf("[webhook] gateway subscription %s unknown locally, skipping delete", gwSub.ID)
			return nil
		}
		log.Printf("[webhook] gateway subscription %s cancelled student=%s", gwSub.ID, studentID)
		return tx.UpdateStudentSubscription(ctx, studentID, entity.SubscriptionStatusCancelled, &periodEnd)
	})
}

// HandlePaymentSucceeded records a recurring invoice charge and keeps the
// subscription active.
func (r *WebhookReconciler) HandlePaymentSucceeded(ctx context.Context, event *stripe.Event) error {
	invoice, err := event.Invoice()
	if err != nil {
		return &TechnicalError{Code: "WEBHOOK_PAYLOAD_ERROR", Message: "malformed invoice payload", Err: err}
	}
	if invoice.Subscription == "" {
		return nil
	}

	return r.Store.WithinTx(ctx, func(tx Tx) error {
		sub, err := tx.SubscriptionByGatewayID(ctx, invoice.Subscription)
		if err != nil {
			return err
		}
		if sub == nil {
			log.Printf("[webhook] invoice %s for unknown subscription %s, skipping", invoice.ID, invoice.Subscription)
			return nil
		}

		paidAt := time.Now()
		if invoice.StatusTransitions.PaidAt > 0 {
			paidAt = time.Unix(invoice.StatusTransitions.PaidAt, 0)
		}

		ledger := entity.NewPayment(sub.ID, float64(invoice.AmountPaid)/100, invoice.Currency, entity.PaymentStatusPaid, entity.PaymentMethodCard, invoice.PaymentIntent)
		ledger.PaidAt = &paidAt
		if err := tx.CreatePayment(ctx, ledger); err != nil {
			return err
		}

		if err := tx.UpdateSubscriptionStatus(ctx, sub.ID, entity.SubscriptionStatusActive, nil); err != nil {
			return err
		}
		periodEnd := sub.CurrentPeriodEnd
		return tx.UpdateStudentSubscription(ctx, sub.StudentID, entity.SubscriptionStatusActive, &periodEnd)
	})
}

// HandlePaymentFailed suspends the subscription and records the failed
// charge. Access is not revoked until the gateway gives up and deletes the
// subscription outright.
func (r *WebhookReconciler) HandlePaymentFailed(ctx context.Context, event *stripe.Event) error {
	invoice, err := event.Invoice()
	if err != nil {
		return &TechnicalError{Code: "WEBHOOK_PAYLOAD_ERROR", Message: "malformed invoice payload", Err: err}
	}
	if invoice.Subscription == "" {
		return nil
	}

	return r.Store.WithinTx(ctx, func(tx Tx) error {
		sub, err := tx.SubscriptionByGatewayID(ctx, invoice.Subscription)
		if err != nil {
			return err
		}
		if sub == nil {
			log.Printf("[webhook] failed invoice %s for unknown subscription %s, skipping", invoice.ID, invoice.Subscription)
			return nil
		}

		ledger := entity.NewPayment(sub.ID, float64(invoice.AmountDue)/100, invoice.Currency, entity.PaymentStatusFailed, entity.PaymentMethodCard, invoice.PaymentIntent)
		if err := tx.CreatePayment(ctx, ledger); err != nil {
			return err
		}

		if err := tx.UpdateSubscriptionStatus(ctx, sub.ID, entity.SubscriptionStatusSuspended, nil); err != nil {
			return err
		}
		log.Printf("⚠️ [webhook] payment failed for subscription %s, suspended", sub.ID)
		periodEnd := sub.CurrentPeriodEnd
		return tx.UpdateStudentSubscription(ctx, sub.StudentID, entity.SubscriptionStatusSuspended, &periodEnd)
	})
}

func mapGatewaySubscriptionStatus(s string) string {
	switch s {
	case "active", "trialing":
		return entity.SubscriptionStatusActive
	case "past_due", "unpaid":
		return entity.SubscriptionStatusSuspended
	case "canceled":
		return entity.SubscriptionStatusCancelled
	default:
		return entity.SubscriptionStatusPending
	}
}
