package models

// Candidate is one independently produced annotation for an image:
// a crop name plus the set of issue labels observed on it. Labels are
// deduplicated and keep their first-seen order.
type Candidate struct {
	Crop   string   `json:"crop"`
	Labels []string `json:"labels"`
}

// AnnotationPair is one row of the review dataset: two candidate
// annotations for the same image, identified by its ordinal position
// and image path.
type AnnotationPair struct {
	Index     int       `json:"index"`
	ImagePath string    `json:"image_path"`
	A         Candidate `json:"candidate_a"`
	B         Candidate `json:"candidate_b"`
}
