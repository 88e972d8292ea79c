package api

// LoginRequest is the JSON body for POST /login. Phone is optional: when
// present the response signals the client to proceed to code verification.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Phone    string `json:"phone,omitempty"`
}

// LoginResponse is returned from POST /login.
type LoginResponse struct {
	Step    string `json:"step"`
	Message string `json:"message,omitempty"`
}

// SendCodeRequest is the JSON body for POST /send-code.
type SendCodeRequest struct {
	Phone string `json:"phone"`
}

// SendCodeResponse is returned from POST /send-code.
type SendCodeResponse struct {
	Status string `json:"status"`
}

// VerifyCodeRequest is the JSON body for POST /verify-code.
type VerifyCodeRequest struct {
	Phone    string `json:"phone"`
	Code     string `json:"code"`
	Username string `json:"username"`
}

// VerifyCodeResponse is returned from POST /verify-code.
type VerifyCodeResponse struct {
	Token string `json:"token"`
}

// UploadResponse is returned from POST /upload.
type UploadResponse struct {
	URL string `json:"url"`
}

// DeleteFileRequest is the JSON body for DELETE /files.
type DeleteFileRequest struct {
	Filename string `json:"filename"`
}

// RenameFileRequest is the JSON body for POST /rename-file.
type RenameFileRequest struct {
	OldName string `json:"oldName"`
	NewName string `json:"newName"`
}

// SuccessResponse is returned from mutating file operations.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// ErrorResponse is returned for all error cases. Details carries the
// provider or storage diagnostic when one exists.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
