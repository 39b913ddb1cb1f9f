package dto

// CreatePostRequest is the body of POST /posts.
type CreatePostRequest struct {
	Content      string              `json:"content" binding:"required,notblank,max=5000" example:"study session"`
	EventTime    Optional[Timestamp] `json:"eventTime" swaggertype:"string" format:"date-time" example:"2025-03-01T14:30"`
	Duration     Optional[int]       `json:"duration" swaggertype:"integer" example:"90"`
	Location     Optional[string]    `json:"location" swaggertype:"string" example:"library"`
	TargetPeople Optional[int]       `json:"targetPeople" swaggertype:"integer" example:"3"`
	Tags         []string            `json:"tags" example:"study,math"`
}

// UpdatePostRequest is the body of PUT /posts/{id}. Keys left out are not
// touched; null (or "" for non-text fields) clears an optional field.
type UpdatePostRequest struct {
	Content      Optional[string]    `json:"content" swaggertype:"string"`
	EventTime    Optional[Timestamp] `json:"eventTime" swaggertype:"string" format:"date-time" example:"2025-03-01T14:30"`
	Duration     Optional[int]       `json:"duration" swaggertype:"integer"`
	Location     Optional[string]    `json:"location" swaggertype:"string" example:"library"`
	TargetPeople Optional[int]       `json:"targetPeople" swaggertype:"integer"`
	Tags         Optional[[]string]  `json:"tags" swaggertype:"array,string"`
}
