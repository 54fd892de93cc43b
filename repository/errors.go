package repository

import "github.com/heritageplates/backend/pkg/apperr"

var errVendorNotPending = apperr.Conflict("application is not pending")
