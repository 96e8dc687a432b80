package dto

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Payout methods are lowercase tags with optional variant suffixes,
// e.g. "bkash-personal", "nagad", "rocket-agent".
var payoutMethodRe = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("payout_method", validatePayoutMethod)
	}
}

func validatePayoutMethod(fl validator.FieldLevel) bool {
	return payoutMethodRe.MatchString(fl.Field().String())
}
