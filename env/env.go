package env

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// validations maps an environment variable name to the validator tags that are
// checked every time the variable is read. Packages register their required
// variables in an init func so that a missing variable fails loudly on first use
// instead of being silently defaulted.
var (
	mu          sync.RWMutex
	validations = map[string]string{}
	validate    = validator.New()
)

// RegisterValidation registers validator tags for an environment variable
func RegisterValidation(key string, tags ...string) {
	mu.Lock()
	defer mu.Unlock()
	existing := validations[key]
	for _, tag := range tags {
		if existing == "" {
			existing = tag
		} else if !strings.Contains(existing, tag) {
			existing += "," + tag
		}
	}
	validations[key] = existing
}

func checkValidation(key string, value any) {
	mu.RLock()
	tags := validations[key]
	mu.RUnlock()
	if tags == "" {
		return
	}
	if err := validate.Var(value, tags); err != nil {
		panic(fmt.Sprintf("env: %s failed '%s' validation: %s", key, tags, err))
	}
}

func GetString(key string) string {
	v := viper.GetString(key)
	checkValidation(key, v)
	return v
}

func GetStringSlice(key string) []string {
	v := viper.GetStringSlice(key)
	checkValidation(key, v)
	return v
}

func GetInt(key string) int {
	v := viper.GetInt(key)
	checkValidation(key, v)
	return v
}

func GetInt64(key string) int64 {
	v := viper.GetInt64(key)
	checkValidation(key, v)
	return v
}

func GetFloat64(key string) float64 {
	v := viper.GetFloat64(key)
	checkValidation(key, v)
	return v
}

func GetBool(key string) bool {
	v := viper.GetBool(key)
	checkValidation(key, v)
	return v
}
