// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

/*
Package validation checks decoded API requests with go-playground/validator.

Request structs declare their rules in struct tags:

	type submitContentRequest struct {
	    Text   string `json:"text" validate:"required,notblank,max=10000"`
	    Region string `json:"region,omitempty" validate:"omitempty,region"`
	}

	if verr := validation.ValidateStruct(&req); verr != nil {
	    // verr.Error() joins the messages, verr.Details() feeds the envelope
	}

Custom rules:

  - notblank: rejects strings that are empty after trimming whitespace
  - region: lowercase slug of letters, digits, '-' and '_' (max 64)

Field names in messages come from the json (or query) tag.
*/
package validation
