// Prospectus - Sales Engagement Analytics and Platform Sync
// Copyright 2026 Outbound Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/outboundlabs/prospectus

package sync

import (
	"strings"
	"time"

	"github.com/outboundlabs/prospectus/internal/models"
)

// defaultTalkThreshold is the minimum talk time that counts as a real
// conversation when the configuration carries no threshold.
const defaultTalkThreshold = 60 * time.Second

// categoryDispositions maps canonical dialer categories straight to a
// disposition. Keys are the output of canonicalCategory.
var categoryDispositions = map[string]models.Disposition{
	"conversation":       models.DispositionConversation,
	"contact made":       models.DispositionConversation,
	"interested":         models.DispositionConversation,
	"appointment set":    models.DispositionConversation,
	"callback":           models.DispositionConversation,
	"callback requested": models.DispositionConversation,

	"voicemail":      models.DispositionVoicemail,
	"voice mail":     models.DispositionVoicemail,
	"left voicemail": models.DispositionVoicemail,
	"left message":   models.DispositionVoicemail,

	"no answer":  models.DispositionNoAnswer,
	"no contact": models.DispositionNoAnswer,

	"busy":        models.DispositionBusy,
	"busy signal": models.DispositionBusy,

	"email sent": models.DispositionEmailSent,
	"sent email": models.DispositionEmailSent,

	"wrong number":   models.DispositionWrongNumber,
	"bad number":     models.DispositionWrongNumber,
	"invalid number": models.DispositionWrongNumber,
	"disconnected":   models.DispositionWrongNumber,

	"do not call":      models.DispositionDoNotCall,
	"dnc":              models.DispositionDoNotCall,
	"remove from list": models.DispositionDoNotCall,
}

// sendEmailCategories are the categories agents pick both after a real
// conversation that ends with "I'll send you something" and for a silent
// drop straight to the prospect's inbox. Talk time is the tiebreaker.
var sendEmailCategories = map[string]bool{
	"send email":           true,
	"send follow up email": true,
}

// ClassifyDisposition resolves a raw dialer category into a canonical
// disposition. talkSeconds is the call's recorded talk time; threshold is
// the minimum talk time that counts as a conversation (values <= 0 fall
// back to the default). Unknown categories classify as "other" rather than
// failing, so one odd label never drops a call.
func ClassifyDisposition(rawCategory string, talkSeconds int, threshold time.Duration) models.Disposition {
	if threshold <= 0 {
		threshold = defaultTalkThreshold
	}
	talked := time.Duration(talkSeconds)*time.Second >= threshold

	category := canonicalCategory(rawCategory)
	if category == "" {
		// No category recorded. A real conversation still shows in talk
		// time; anything else is unclassifiable.
		if talked {
			return models.DispositionConversation
		}
		return models.DispositionOther
	}

	if d, ok := categoryDispositions[category]; ok {
		return d
	}
	if sendEmailCategories[category] {
		if talked {
			return models.DispositionConversation
		}
		return models.DispositionEmailSent
	}
	return models.DispositionOther
}

// categorySeparators folds the spellings dialer exports flip between into
// plain spaces before matching.
var categorySeparators = strings.NewReplacer("_", " ", "-", " ", "/", " ")

// canonicalCategory lowercases a raw category and collapses separator and
// whitespace variants, so "Left_Voicemail" and "left voicemail" match the
// same table entry.
func canonicalCategory(raw string) string {
	fields := strings.Fields(categorySeparators.Replace(strings.ToLower(raw)))
	return strings.Join(fields, " ")
}
