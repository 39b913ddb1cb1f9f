package dto

// CompleteProfileRequest is the body of PUT /profile/complete. Every field but
// the avatar is required.
type CompleteProfileRequest struct {
	RealName  string   `json:"realName" binding:"required,notblank,max=100" example:"Alice Zhang"`
	Nickname  string   `json:"nickname" binding:"required,notblank,max=100" example:"alice"`
	Grade     string   `json:"grade" binding:"required,notblank,max=50" example:"2023"`
	Gender    string   `json:"gender" binding:"required,notblank,max=20" example:"female"`
	Bio       string   `json:"bio" binding:"required,notblank" example:"CS undergrad, likes board games"`
	Tags      []string `json:"tags" binding:"required,min=1" example:"chess,hiking"`
	AvatarURL *string  `json:"avatarUrl"`
}

// AvatarResponse is returned after an avatar upload.
type AvatarResponse struct {
	AvatarURL string `json:"avatarUrl" example:"/uploads/avatars/1-1700000000.png"`
}
