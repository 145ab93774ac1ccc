package main

import (
	"fmt"
	"reflect"
	"strings"

	"fingate/config"
	"fingate/utils/path"

	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// 環境變數以雙底線分層，例如 GATEWAY__UPSTREAMS、RATE_LIMIT__STORE
const envKeyDelimiter = "__"

// loadConfig --env 優先於 --config；都沒給時只讀環境變數
func loadConfig(envFile, yamlFile string) (*config.Configuration, error) {
	v := viper.NewWithOptions(viper.KeyDelimiter(envKeyDelimiter))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", envKeyDelimiter))
	v.AutomaticEnv()

	switch {
	case envFile != "":
		v.SetConfigFile(path.Resolve(envFile))
		v.SetConfigType("env")
	case yamlFile != "":
		v.SetConfigFile(path.Resolve(yamlFile, "conf"))
		v.SetConfigType("yaml")
	}

	conf := &config.Configuration{}
	if file := v.ConfigFileUsed(); file != "" {
		if ok, _ := path.Exists(file); !ok {
			return nil, fmt.Errorf("config file not found: %s", file)
		}
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
		fmt.Println("load config:", file)

		// 只有 log level 之類可熱更新的欄位會生效，連線類設定仍需重啟
		v.OnConfigChange(func(in fsnotify.Event) {
			fmt.Println("config file changed:", in.Name)
			if err := v.Unmarshal(conf, viper.DecodeHook(decodeHook())); err != nil {
				fmt.Println("reload config failed:", err)
			}
		})
		v.WatchConfig()
	} else {
		fmt.Println("no config file given, reading environment variables only")
	}

	bindEnvs(v, reflect.TypeOf(config.Configuration{}))
	if err := v.Unmarshal(conf, viper.DecodeHook(decodeHook())); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return conf, nil
}

func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		stringToMapHook(),
		mapstructure.StringToSliceHookFunc(","),
		mapstructure.StringToTimeDurationHookFunc(),
	)
}

// stringToMapHook 讓 env 能以 "reports=http://a:8080,tax=http://b:8080" 設定 map
func stringToMapHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if from.Kind() != reflect.String || to.Kind() != reflect.Map || to.Key().Kind() != reflect.String {
			return data, nil
		}
		raw := strings.TrimSpace(data.(string))
		out := map[string]string{}
		if raw == "" {
			return out, nil
		}
		for _, pair := range strings.Split(raw, ",") {
			k, v, ok := strings.Cut(pair, "=")
			if !ok || strings.TrimSpace(k) == "" {
				return nil, fmt.Errorf("invalid map entry %q, want key=value", pair)
			}
			out[strings.TrimSpace(k)] = strings.TrimSpace(v)
		}
		return out, nil
	}
}

// bindEnvs viper 的 AutomaticEnv 不會主動 Unmarshal 沒出現在設定檔的 key，需逐一綁定
func bindEnvs(v *viper.Viper, t reflect.Type, prefix ...string) {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		name := field.Tag.Get("mapstructure")
		if name == "" || name == "-" {
			name = field.Name
		}
		key := append(append([]string{}, prefix...), name)
		ft := field.Type
		if ft.Kind() == reflect.Ptr {
			ft = ft.Elem()
		}
		if ft.Kind() == reflect.Struct {
			bindEnvs(v, ft, key...)
			continue
		}
		_ = v.BindEnv(strings.Join(key, envKeyDelimiter))
	}
}
