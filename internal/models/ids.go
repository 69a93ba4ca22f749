package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewItemID returns prefix-<unix millis>-<random suffix>.
func NewItemID(prefix string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().UnixMilli(), suffix)
}
