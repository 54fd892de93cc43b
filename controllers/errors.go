package controllers

import "errors"

var errInvalidLocation = errors.New("lat and lng must be valid coordinates given together")
