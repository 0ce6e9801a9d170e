package web

// LoginForm is the login view's form.
type LoginForm struct {
	Username    string `form:"username" binding:"required"`
	Password    string `form:"password" binding:"required"`
	RedirectURL string `form:"redirectUrl"`
}

// RegisterForm is the register view's form.
type RegisterForm struct {
	Username        string `form:"username" binding:"required,min=3"`
	Password        string `form:"password" binding:"required,min=6"`
	ConfirmPassword string `form:"confirmPassword" binding:"required,eqfield=Password"`
}
