package server

import (
	"regexp"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// accountNumberPattern matches the NNN-NNN-NNNNN account number format.
var accountNumberPattern = regexp.MustCompile(`^\d{3}-\d{3}-\d{5}$`)

var registerValidatorsOnce sync.Once

// registerValidators installs the custom binding validators on gin's
// validator engine. Safe to call from every router construction.
func registerValidators() {
	registerValidatorsOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterValidation("acctnum", func(fl validator.FieldLevel) bool {
			return accountNumberPattern.MatchString(fl.Field().String())
		})
	})
}
