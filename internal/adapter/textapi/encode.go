package textapi

import "strconv"

// encodeDocuments turns an ordered slice of rows into the wire documents of
// one batch request. The correlation id of each document is its zero-based
// position in rows, so ids are unique and contiguous from "0".
//
// language is the single configured scalar; it is broadcast to every row
// that has no language of its own as an explicit pre-pass. Per-row values
// always win over the broadcast.
func encodeDocuments(rows []Row, language string) []Document {
	docs := make([]Document, len(rows))
	for i, row := range rows {
		lang := row.Language
		if lang == "" {
			lang = language
		}
		docs[i] = Document{
			ID:       strconv.Itoa(i),
			Text:     row.Text, // zero value already coerces absent text to ""
			Language: lang,
		}
	}
	return docs
}

type batchRequest struct {
	Documents []Document `json:"documents"`
}
