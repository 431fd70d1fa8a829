package admin

import "errors"

var (
	ErrAdminNotFound      = errors.New("admin not found")
	ErrAdminAlreadyExists = errors.New("admin already exists")
	ErrAdminInactive      = errors.New("admin account is suspended")
)
