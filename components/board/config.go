package board

import (
	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// Config selects a board model and carries its model-specific attributes.
type Config struct {
	Model      string                 `json:"model"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (conf *Config) Validate(path string) error {
	if conf.Model == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "model")
	}
	if !IsRegistered(conf.Model) {
		return utils.NewConfigValidationError(path, errors.Errorf("unknown board model %q", conf.Model))
	}
	return nil
}

// NativeAttributes decodes the config's attributes into a model's attribute struct, using the
// struct's json tags. Strings are converted to numbers and bools where needed so that values
// substituted from the environment still decode.
func NativeAttributes[T any](conf Config) (*T, error) {
	var out T
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           &out,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(conf.Attributes); err != nil {
		return nil, errors.Wrapf(err, "invalid attributes for board model %q", conf.Model)
	}
	return &out, nil
}
