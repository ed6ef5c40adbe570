package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// SafeInvalidatePattern safely invalidates cache pattern with logging
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

// SafeDelete safely deletes cache keys with logging
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// InvalidatePatientCache invalidates all patient-related caches
func InvalidatePatientCache(ctx context.Context, cm *CacheManager, patientID uint, caregiverID uint) {
	SafeDelete(ctx, cm.Patient,
		fmt.Sprintf("id:%d", patientID),
		fmt.Sprintf("details:%d", patientID))

	SafeInvalidatePattern(ctx, cm.Patient, fmt.Sprintf("caregiver:%d:*", caregiverID))
	SafeInvalidatePattern(ctx, cm.Patient, "list:*")
	SafeInvalidatePattern(ctx, cm.Stats, fmt.Sprintf("patient:%d:*", patientID))
	SafeInvalidatePattern(ctx, cm.Stats, "dashboard:*")
}

// InvalidateZoneCache invalidates zone geometry caches for a patient
func InvalidateZoneCache(ctx context.Context, cm *CacheManager, zoneID uint, patientID uint) {
	SafeDelete(ctx, cm.Zone, fmt.Sprintf("id:%d", zoneID))
	SafeInvalidatePattern(ctx, cm.Zone, fmt.Sprintf("patient:%d:*", patientID))
	SafeInvalidatePattern(ctx, cm.Zone, "pending:*")
}

// InvalidateIncidentCache invalidates incident listings and the rolling
// stats that feed risk scoring for a patient
func InvalidateIncidentCache(ctx context.Context, cm *CacheManager, incidentID uint, patientID uint) {
	SafeDelete(ctx, cm.Incident, fmt.Sprintf("id:%d", incidentID))
	SafeInvalidatePattern(ctx, cm.Incident, fmt.Sprintf("patient:%d:*", patientID))
	SafeInvalidatePattern(ctx, cm.Incident, "list:*")
	SafeInvalidatePattern(ctx, cm.Stats, fmt.Sprintf("patient:%d:*", patientID))
	SafeInvalidatePattern(ctx, cm.Stats, "dashboard:*")
}
