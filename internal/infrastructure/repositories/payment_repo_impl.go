package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"paysync.backend/internal/domain/entities"
	domainerrors "paysync.backend/internal/domain/errors"
	domainrepos "paysync.backend/internal/domain/repositories"
	"paysync.backend/internal/infrastructure/models"
	"paysync.backend/internal/statemachine"
	"paysync.backend/pkg/utils"
)

type paymentRepo struct {
	db  *gorm.DB
	uow domainrepos.UnitOfWork
}

// NewPaymentRepository constructs the gorm-backed PaymentRepository.
// It needs its own UnitOfWork rather than receiving one per-call
// because ProcessPaymentEvent must both lock and transact: the
// per-ExternalID advisory lock and the row mutation + audit insert
// happen in the same database transaction.
func NewPaymentRepository(db *gorm.DB, uow domainrepos.UnitOfWork) domainrepos.PaymentRepository {
	return &paymentRepo{db: db, uow: uow}
}

func (r *paymentRepo) ProcessPaymentEvent(ctx context.Context, np entities.NewPayment) (domainrepos.ProcessResult, error) {
	var result domainrepos.ProcessResult

	err := r.uow.DoWithLock(ctx, string(np.ExternalID), func(ctx context.Context) error {
		db := GetDB(ctx, r.db)

		dup, err := insertProviderEvent(ctx, db, np)
		if err != nil {
			return err
		}
		if dup {
			existing, err := loadPaymentByExternalID(ctx, db, np.ExternalID)
			if err != nil {
				return err
			}
			result = domainrepos.ProcessResult{Decision: statemachine.Duplicate, Payment: existing}
			return nil
		}

		var row models.Payment
		err = db.WithContext(ctx).Where("external_id = ?", string(np.ExternalID)).First(&row).Error
		current := statemachine.Current{}
		if err == nil {
			current = statemachine.Current{Exists: true, Status: entities.PaymentStatus(row.Status), ProviderTS: row.LastProviderTS}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		decision := statemachine.Decide(current, np.Status, np.ProviderTS)

		switch decision {
		case statemachine.Insert:
			created, err := insertPayment(ctx, db, np)
			if err != nil {
				return err
			}
			result = domainrepos.ProcessResult{Decision: decision, Payment: created}
			return insertAudit(ctx, db, created.ID, np.ExternalID, np.LastEventID, entities.AuditCreated, detailFor(np))

		case statemachine.Transition:
			updated, err := transitionPayment(ctx, db, row, np)
			if err != nil {
				return err
			}
			result = domainrepos.ProcessResult{Decision: decision, Payment: updated}
			return insertAudit(ctx, db, updated.ID, np.ExternalID, np.LastEventID, entities.AuditStatusChanged, detailFor(np))

		case statemachine.SkipDuplicateStatus:
			updated, err := advanceWatermark(ctx, db, row, np)
			if err != nil {
				return err
			}
			result = domainrepos.ProcessResult{Decision: decision, Payment: updated}
			return insertAudit(ctx, db, updated.ID, np.ExternalID, np.LastEventID, entities.AuditEventReceived, detailFor(np))

		case statemachine.SkipStale:
			result = domainrepos.ProcessResult{Decision: decision, Payment: toEntity(&row)}
			return insertAudit(ctx, db, row.ID.String(), np.ExternalID, np.LastEventID, entities.AuditEventReceived, detailFor(np))

		case statemachine.SkipAnomalous:
			result = domainrepos.ProcessResult{Decision: decision, Payment: toEntity(&row)}
			return insertAudit(ctx, db, row.ID.String(), np.ExternalID, np.LastEventID, entities.AuditAnomalyLogged, detailFor(np))
		}

		return nil
	})
	if err != nil {
		return domainrepos.ProcessResult{}, err
	}
	return result, nil
}

// insertProviderEvent performs spec.md §4.4's dedup gate: the first
// statement inside ProcessPaymentEvent's transaction. A conflicting
// primary key means this LastEventID was already processed; the
// caller treats that as Duplicate without touching the payment row.
func insertProviderEvent(ctx context.Context, db *gorm.DB, np entities.NewPayment) (bool, error) {
	row := models.ProviderEvent{
		EventID:    string(np.LastEventID),
		ObjectID:   string(np.ExternalID),
		EventType:  np.EventType,
		ProviderTS: np.ProviderTS,
		Payload:    np.RawEvent,
		ReceivedAt: time.Now(),
	}
	res := db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 0, nil
}

func loadPaymentByExternalID(ctx context.Context, db *gorm.DB, externalID entities.ExternalID) (*entities.Payment, error) {
	var row models.Payment
	if err := db.WithContext(ctx).Where("external_id = ?", string(externalID)).First(&row).Error; err != nil {
		return nil, err
	}
	return toEntity(&row), nil
}

func insertPayment(ctx context.Context, db *gorm.DB, np entities.NewPayment) (*entities.Payment, error) {
	metadata, err := json.Marshal(np.Metadata)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	row := models.Payment{
		ID:               utils.GenerateUUIDv7(),
		ExternalID:       string(np.ExternalID),
		Source:           np.Source,
		EventType:        np.EventType,
		Direction:        string(np.Direction),
		AmountMinor:      np.Amount.Minor,
		Currency:         string(np.Amount.Currency),
		Status:           string(np.Status),
		Metadata:         string(metadata),
		RawEvent:         np.RawEvent,
		LastEventID:      string(np.LastEventID),
		ParentExternalID: externalIDPtrToString(np.ParentExternalID),
		LastProviderTS:   np.ProviderTS,
		ReceivedAt:       now,
	}
	if err := db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, err
	}
	return toEntity(&row), nil
}

func transitionPayment(ctx context.Context, db *gorm.DB, row models.Payment, np entities.NewPayment) (*entities.Payment, error) {
	metadata, err := json.Marshal(np.Metadata)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{
		"status":           string(np.Status),
		"metadata":         string(metadata),
		"raw_event":        np.RawEvent,
		"last_event_id":    string(np.LastEventID),
		"last_provider_ts": np.ProviderTS,
		"updated_at":       time.Now(),
	}
	if err := db.WithContext(ctx).Model(&models.Payment{}).Where("id = ?", row.ID).Updates(updates).Error; err != nil {
		return nil, err
	}
	return reloadPayment(ctx, db, row.ID.String())
}

// advanceWatermark handles SkipDuplicateStatus: the status does not
// change, but last_event_id/last_provider_ts still move forward so a
// later, genuinely stale redelivery is still caught.
func advanceWatermark(ctx context.Context, db *gorm.DB, row models.Payment, np entities.NewPayment) (*entities.Payment, error) {
	updates := map[string]interface{}{
		"last_event_id":    string(np.LastEventID),
		"last_provider_ts": np.ProviderTS,
		"updated_at":       time.Now(),
	}
	if err := db.WithContext(ctx).Model(&models.Payment{}).Where("id = ?", row.ID).Updates(updates).Error; err != nil {
		return nil, err
	}
	return reloadPayment(ctx, db, row.ID.String())
}

func reloadPayment(ctx context.Context, db *gorm.DB, id string) (*entities.Payment, error) {
	var row models.Payment
	if err := db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, err
	}
	return toEntity(&row), nil
}

func insertAudit(ctx context.Context, db *gorm.DB, entityID string, externalID entities.ExternalID, eventID entities.EventID, action entities.AuditAction, detail map[string]interface{}) error {
	detailJSON, err := json.Marshal(detail)
	if err != nil {
		return err
	}
	extID := string(externalID)
	evID := string(eventID)
	row := models.AuditLog{
		ID:         utils.GenerateUUIDv7(),
		EntityType: "payment",
		EntityID:   entityID,
		ExternalID: &extID,
		EventID:    &evID,
		Action:     string(action),
		Actor:      "system",
		Detail:     string(detailJSON),
		CreatedAt:  time.Now(),
	}
	// event_id already audited; nothing new to record.
	return db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
}

func detailFor(np entities.NewPayment) map[string]interface{} {
	return map[string]interface{}{
		"event_type":  np.EventType,
		"status":      string(np.Status),
		"provider_ts": np.ProviderTS,
	}
}

func (r *paymentRepo) GetByExternalID(ctx context.Context, externalID entities.ExternalID) (*entities.Payment, error) {
	var row models.Payment
	err := r.db.WithContext(ctx).Where("external_id = ?", string(externalID)).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domainerrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return toEntity(&row), nil
}

func (r *paymentRepo) LogPassthroughEvent(ctx context.Context, entry entities.AuditEntry) error {
	detailJSON, err := json.Marshal(entry.Detail)
	if err != nil {
		return err
	}
	action := entry.Action
	if action == "" {
		action = entities.AuditPassthrough
	}
	row := models.AuditLog{
		ID:         utils.GenerateUUIDv7(),
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		Action:     string(action),
		Actor:      entry.Actor,
		Detail:     string(detailJSON),
		CreatedAt:  time.Now(),
	}
	if entry.ExternalID != nil {
		s := string(*entry.ExternalID)
		row.ExternalID = &s
	}
	if entry.EventID != nil {
		s := string(*entry.EventID)
		row.EventID = &s
	}
	err = r.db.WithContext(ctx).Create(&row).Error
	if err != nil && isUniqueViolation(err) {
		return nil
	}
	return err
}

func (r *paymentRepo) ListAuditTrail(ctx context.Context, externalID entities.ExternalID, limit, offset int) ([]*entities.AuditEntry, error) {
	var rows []models.AuditLog
	q := r.db.WithContext(ctx).Where("external_id = ?", string(externalID)).Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}

	entries := make([]*entities.AuditEntry, 0, len(rows))
	for _, row := range rows {
		var detail map[string]interface{}
		_ = json.Unmarshal([]byte(row.Detail), &detail)
		entry := &entities.AuditEntry{
			ID:         row.ID.String(),
			EntityType: row.EntityType,
			EntityID:   row.EntityID,
			Action:     entities.AuditAction(row.Action),
			Actor:      row.Actor,
			Detail:     detail,
			CreatedAt:  row.CreatedAt,
		}
		if row.ExternalID != nil {
			extID := entities.ExternalID(*row.ExternalID)
			entry.ExternalID = &extID
		}
		if row.EventID != nil {
			evID := entities.EventID(*row.EventID)
			entry.EventID = &evID
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func toEntity(row *models.Payment) *entities.Payment {
	var metadata map[string]string
	_ = json.Unmarshal([]byte(row.Metadata), &metadata)

	p := &entities.Payment{
		ID:             row.ID.String(),
		ExternalID:     entities.ExternalID(row.ExternalID),
		Source:         row.Source,
		EventType:      row.EventType,
		Direction:      entities.PaymentDirection(row.Direction),
		Amount:         entities.Amount{Minor: row.AmountMinor, Currency: entities.Currency(row.Currency)},
		Status:         entities.PaymentStatus(row.Status),
		Metadata:       metadata,
		RawEvent:       row.RawEvent,
		LastEventID:    entities.EventID(row.LastEventID),
		LastProviderTS: row.LastProviderTS,
		ReceivedAt:     row.ReceivedAt,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}
	if row.ParentExternalID != nil {
		parent := entities.ExternalID(*row.ParentExternalID)
		p.ParentExternalID = &parent
	}
	return p
}

func externalIDPtrToString(id *entities.ExternalID) *string {
	if id == nil {
		return nil
	}
	s := string(*id)
	return &s
}

// isUniqueViolation recognizes both Postgres's unique_violation error
// text and sqlite's constraint error, since tests run against sqlite.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "UNIQUE constraint") || strings.Contains(msg, "duplicate key")
}
