package domain

// Passage is a ranked unit of text returned by the knowledge retriever.
type Passage struct {
	// ID is unique within a knowledge source.
	ID string `json:"id"`

	// Source is the knowledge source the passage came from.
	Source string `json:"source"`

	// Title is the passage title, often the article name.
	Title string `json:"title,omitempty"`

	// Text is the passage body.
	Text string `json:"text"`

	// Score is the retrieval relevance score. Higher is better.
	Score float64 `json:"score"`
}

// Content returns the text handed to the triple extractor.
func (p Passage) Content() string {
	if p.Title == "" {
		return p.Text
	}
	return p.Title + "\n" + p.Text
}
