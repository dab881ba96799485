package service

import (
	"fmt"
	"log"

	"learnhub/internal/models"
	"learnhub/internal/repository"
)

// recordAudit writes an audit row inside the caller's transaction. Audit failures roll the
// action back with it.
func recordAudit(repo *repository.AuditLogRepository, actorID uint, action, resource string, resourceID uint, meta map[string]interface{}) error {
	var uid *uint
	if actorID != 0 {
		uid = &actorID
	}
	if err := repo.Create(&models.AuditLog{
		UserID:     uid,
		Action:     action,
		Resource:   resource,
		ResourceID: fmt.Sprintf("%d", resourceID),
		Metadata:   meta,
	}); err != nil {
		log.Printf("[audit] %s %s/%d: %v", action, resource, resourceID, err)
		return err
	}
	return nil
}
