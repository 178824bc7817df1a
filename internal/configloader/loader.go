/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Package configloader is the "configuration loader" collaborator spec.md
// §1 names as external to the CORE: it binds internal/config.Config from a
// file on disk (YAML/TOML/JSON, detected by extension) plus environment
// overrides, using the same viper/mapstructure stack the teacher's own
// config package and file/perm.ViperDecoderHook reach for, rather than
// hand-rolling a flag/file parser.
package configloader

import (
	"path/filepath"
	"reflect"
	"strings"

	mapstruct "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/nabbar/vsbackup/internal/config"
	"github.com/nabbar/vsbackup/internal/fsmeta"
	"github.com/nabbar/vsbackup/internal/vserr"
)

// EnvPrefix is the prefix every environment-variable override must carry,
// e.g. VSBACKUP_MAX_BACKUPS overrides max_backups.
const EnvPrefix = "VSBACKUP"

// permDecodeHook binds an octal-string config value ("0700") directly into
// an fsmeta.Perm field, the same shape as the teacher's own
// file/perm.ViperDecoderHook for its Perm type.
func permDecodeHook() mapstruct.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		var z fsmeta.Perm
		if from.Kind() != reflect.String || to != reflect.TypeOf(z) {
			return data, nil
		}
		s, _ := data.(string)
		p, err := fsmeta.ParsePerm(s)
		if err != nil {
			return data, nil
		}
		return p, nil
	}
}

// Load reads path into a fresh viper instance (format inferred from the
// file extension), layers environment overrides under EnvPrefix, decodes
// into internal/config.Config, and validates the result.
func Load(path string) (config.Config, vserr.Error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType(strings.TrimPrefix(filepath.Ext(path), "."))

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := config.Default()

	if err := v.ReadInConfig(); err != nil {
		return cfg, ErrorReadConfig.ErrorParent(err)
	}

	opt := viper.DecoderConfigOption(func(c *mapstruct.DecoderConfig) {
		c.DecodeHook = mapstruct.ComposeDecodeHookFunc(
			permDecodeHook(),
		)
	})

	if err := v.Unmarshal(&cfg, opt); err != nil {
		return cfg, ErrorUnmarshal.ErrorParent(err)
	}

	if verr := cfg.Validate(); verr != nil {
		return cfg, verr
	}
	return cfg, nil
}
