package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"herdcore/pkg/domain"
)

const retiredPrefix = "retired"

// RetiredAnimal is the document written when an animal leaves the herd.
type RetiredAnimal struct {
	Animal    domain.Animal           `json:"animal"`
	Reason    domain.RetirementReason `json:"reason"`
	RetiredAt time.Time               `json:"retired_at"`
	Timeline  []domain.TimelineEvent  `json:"timeline"`
}

// RetiredKey returns the object key for an animal's retirement document.
func RetiredKey(tenant, animalID string) string {
	return path.Join(retiredPrefix, tenant, animalID+".json")
}

// WriteRetired stores doc under RetiredKey.
func WriteRetired(ctx context.Context, store Store, doc RetiredAnimal) (Info, error) {
	payload, err := json.Marshal(doc)
	if err != nil {
		return Info{}, fmt.Errorf("encode retired animal: %w", err)
	}
	key := RetiredKey(doc.Animal.TenantID, doc.Animal.ID)
	return store.Put(ctx, key, bytes.NewReader(payload), PutOptions{
		ContentType: "application/json",
		Metadata: map[string]string{
			"tenant": doc.Animal.TenantID,
			"tag":    doc.Animal.TagNumber,
			"reason": string(doc.Reason),
		},
	})
}

// ReadRetired loads the retirement document for an animal.
func ReadRetired(ctx context.Context, store Store, tenant, animalID string) (RetiredAnimal, error) {
	_, rc, err := store.Get(ctx, RetiredKey(tenant, animalID))
	if err != nil {
		return RetiredAnimal{}, err
	}
	defer func() { _ = rc.Close() }()
	var doc RetiredAnimal
	if err := json.NewDecoder(rc).Decode(&doc); err != nil {
		return RetiredAnimal{}, fmt.Errorf("decode retired animal: %w", err)
	}
	return doc, nil
}

// ListRetired returns the keys of all retirement documents for a tenant.
func ListRetired(ctx context.Context, store Store, tenant string) ([]Info, error) {
	return store.List(ctx, path.Join(retiredPrefix, tenant)+"/")
}
