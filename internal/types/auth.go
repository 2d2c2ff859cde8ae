package types

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type CurrentUser struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

type Credentials struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

func (c Credentials) Empty() bool {
	return c.Token == ""
}
