package testutil

import (
	"time"
)

// JPEG is a tiny stand-in for image content; the console never decodes blobs.
var JPEG = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00, 0xFF, 0xD9}

// UploadFixture is one entry of GET /uploads/recent
type UploadFixture struct {
	ID         string
	Name       string
	URL        string
	Kind       string
	Type       string
	Slot       string
	Size       int64
	UploadedAt time.Time
}

// Map renders the fixture in the backend's wire shape
func (u UploadFixture) Map() map[string]interface{} {
	m := map[string]interface{}{
		"_id":  u.ID,
		"name": u.Name,
		"url":  u.URL,
		"size": u.Size,
	}
	if u.Kind != "" {
		m["kind"] = u.Kind
	}
	if u.Type != "" {
		m["type"] = u.Type
	}
	if u.Slot != "" {
		m["slot"] = u.Slot
	}
	if !u.UploadedAt.IsZero() {
		m["uploadedAt"] = u.UploadedAt.Format(time.RFC3339)
	}
	return m
}

// RecentUploadsSplit is a classified recent-uploads reply
func RecentUploadsSplit(reference, provided []UploadFixture) map[string]interface{} {
	return map[string]interface{}{
		"success":        true,
		"referenceFiles": maps(reference),
		"providedFiles":  maps(provided),
	}
}

// RecentUploadsFlat is an unclassified recent-uploads reply
func RecentUploadsFlat(files ...UploadFixture) map[string]interface{} {
	return map[string]interface{}{
		"success": true,
		"files":   maps(files),
	}
}

func maps(files []UploadFixture) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(files))
	for _, f := range files {
		out = append(out, f.Map())
	}
	return out
}

// PhotoEntryFixture is one photos[] element of a verify-photo reply
type PhotoEntryFixture struct {
	Index      int
	Confidence float64
	Status     string
	Report     interface{}
}

// PhotoVerifyResponse builds a verify-photo reply with one file group
func PhotoVerifyResponse(filename string, totalCost float64, entries ...PhotoEntryFixture) map[string]interface{} {
	photos := make([]map[string]interface{}, 0, len(entries))
	for _, e := range entries {
		p := map[string]interface{}{
			"photo_index":      e.Index,
			"confidence_score": e.Confidence,
			"status":           e.Status,
		}
		if e.Report != nil {
			p["report"] = e.Report
		}
		photos = append(photos, p)
	}
	return map[string]interface{}{
		"success":   true,
		"totalCost": totalCost,
		"raw_response": map[string]interface{}{
			"files": []map[string]interface{}{
				{"filename": filename, "photos": photos},
			},
		},
	}
}

// SignatureEntryFixture is one signatures[] element of a verify-signature reply
type SignatureEntryFixture struct {
	FileIndex      int
	Filename       string
	SignatureIndex int
	Confidence     float64
	Status         string
	Match          bool
	Report         interface{}
}

// SignatureVerifyResponse builds a verify-signature reply
func SignatureVerifyResponse(totalCost float64, entries ...SignatureEntryFixture) map[string]interface{} {
	sigs := make([]map[string]interface{}, 0, len(entries))
	for _, e := range entries {
		s := map[string]interface{}{
			"fileIndex":      e.FileIndex,
			"signatureIndex": e.SignatureIndex,
			"confidence":     e.Confidence,
			"status":         e.Status,
			"match":          e.Match,
		}
		if e.Filename != "" {
			s["filename"] = e.Filename
		}
		if e.Report != nil {
			s["report"] = e.Report
		}
		sigs = append(sigs, s)
	}
	return map[string]interface{}{
		"success":    true,
		"totalCost":  totalCost,
		"signatures": sigs,
	}
}

// VerificationFixture is one history row of GET /verifications
type VerificationFixture struct {
	ID             string
	Type           string
	Status         string
	CreatedAt      time.Time
	TotalCost      *float64
	ReferenceName  string
	ProvidedNames  []string
	PythonResponse interface{}
}

// Map renders the fixture in the backend's wire shape
func (v VerificationFixture) Map() map[string]interface{} {
	m := map[string]interface{}{
		"_id":       v.ID,
		"type":      v.Type,
		"status":    v.Status,
		"createdAt": v.CreatedAt.Format(time.RFC3339),
		"request": map[string]interface{}{
			"referenceFileName": v.ReferenceName,
			"providedFileNames": v.ProvidedNames,
		},
	}
	if v.TotalCost != nil {
		m["totalCost"] = *v.TotalCost
	}
	if v.PythonResponse != nil {
		m["pythonResponse"] = v.PythonResponse
	}
	return m
}

// VerificationsPage builds a GET /verifications reply
func VerificationsPage(total int, records ...VerificationFixture) map[string]interface{} {
	items := make([]map[string]interface{}, 0, len(records))
	for _, r := range records {
		items = append(items, r.Map())
	}
	return map[string]interface{}{
		"success": true,
		"items":   items,
		"total":   total,
	}
}
