package httpapi

//CreateUserRequest is a request to create a new User
type CreateUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

//ChangeUserPasswordRequest is a request to change a User's password
type ChangeUserPasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

//AuthenticateRequest is an email/password authentication request
type AuthenticateRequest struct {
	Email    string
	Password string
}

//StreamRequest is a chat message to stream a reply for
type StreamRequest struct {
	Message string `json:"message"`
	UserID  string `json:"user_id"`
}

//AnalyzeRequest is a message to score against one of the analysis models
type AnalyzeRequest struct {
	Message string `json:"message"`
	UserID  string `json:"user_id"`
}

//SynthesizeRequest is a request to speak text
type SynthesizeRequest struct {
	Text   string `json:"text"`
	UserID string `json:"user_id"`
}
