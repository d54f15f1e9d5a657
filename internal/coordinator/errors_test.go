package coordinator_test

import "geofence-service/internal/errs"

var (
	errNotFound         = errs.New(errs.NotFound, "trip not found")
	errAuditWriteFailed = errs.New(errs.AuditBestEffort, "simulated audit write failure")
)
