package models

type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=128"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// SelectItemRequest jumps the player to a sidebar item.
type SelectItemRequest struct {
	ItemID string `json:"item_id" binding:"required"`
}

// AnswerQuestionRequest records a single selection while answering.
type AnswerQuestionRequest struct {
	QuestionIndex int `json:"question_index" binding:"min=0"`
	OptionIndex   int `json:"option_index" binding:"min=0"`
}

// ChangePasswordRequest rotates the caller's password.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8,max=128"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}
