package demo

import (
	"github.com/junioryono/wired"
	"github.com/junioryono/wired/guards"
)

// Credentials is the body of POST /auth/token.
type Credentials struct {
	Username string `json:"username" validate:"required,alphanum"`
}

// Token is the response of POST /auth/token.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// AuthController issues tokens. The user named "admin" gets the admin
// role; everyone else is a reader.
type AuthController struct {
	Config *guards.Config `inject:"JWT_CONFIG"`
}

var AuthControllerClass = wired.Controller[AuthController]("auth",
	wired.Post("token", "Issue", wired.UsePipes(wired.Body(wired.SchemaOf[Credentials]()))),
)

func (c *AuthController) Issue(in *Credentials) (Token, error) {
	roles := []string{"reader"}
	if in.Username == "admin" {
		roles = append(roles, "admin")
	}
	raw, err := guards.Sign(c.Config, in.Username, roles...)
	if err != nil {
		return Token{}, wired.InternalServerError("cannot sign token")
	}
	return Token{AccessToken: raw, TokenType: "Bearer"}, nil
}

// AuthModule serves /auth.
func AuthModule() *wired.Module {
	return wired.NewModule("auth", wired.Controllers(AuthControllerClass))
}
