package profile

import "errors"

var ErrSamePassword = errors.New("new password must differ from the current one")
