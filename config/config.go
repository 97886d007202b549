package config

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/mcuadros/go-defaults"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Ptr     reflect.Value //指向配置结构体值
	Value   any           //当前值,优先级：环境变量>配置文件>默认值
	Env     any           //环境变量中的值
	File    any           //配置文件中的值
	Default any           //默认值

	name     string // 小写
	propsMap map[string]*Config
	props    []*Config
	tag      reflect.StructTag
}

var durationType = reflect.TypeOf(time.Duration(0))

func (config *Config) Get(key string) (v *Config) {
	if config.propsMap == nil {
		config.propsMap = make(map[string]*Config)
	}
	if v, ok := config.propsMap[key]; ok {
		return v
	}
	v = &Config{
		name: key,
	}
	config.propsMap[key] = v
	config.props = append(config.props, v)
	return v
}

func (config *Config) Has(key string) (ok bool) {
	if config.propsMap == nil {
		return false
	}
	_, ok = config.propsMap[strings.ToLower(key)]
	return ok
}

func (config *Config) MarshalJSON() ([]byte, error) {
	if config.propsMap == nil {
		return json.Marshal(config.Value)
	}
	return json.Marshal(config.propsMap)
}

// Parse 第一步读取配置结构体的默认值,prefix 不为空时读取对应的环境变量
func (config *Config) Parse(s any, prefix ...string) error {
	var t reflect.Type
	var v reflect.Value
	if vv, ok := s.(reflect.Value); ok {
		t, v = vv.Type(), vv
	} else {
		t, v = reflect.TypeOf(s), reflect.ValueOf(s)
	}
	if t.Kind() == reflect.Pointer {
		t, v = t.Elem(), v.Elem()
	}
	config.Ptr = v
	config.Default = v.Interface()
	config.Value = v.Interface()
	if t.Kind() == reflect.Struct {
		for i, j := 0, t.NumField(); i < j; i++ {
			ft, fv := t.Field(i), v.Field(i)
			if !ft.IsExported() {
				continue
			}
			name := strings.ToLower(ft.Name)
			if tag := ft.Tag.Get("yaml"); tag != "" {
				if tag == "-" {
					continue
				}
				name, _, _ = strings.Cut(tag, ",")
			}
			prop := config.Get(name)
			prop.tag = ft.Tag
			if err := prop.Parse(fv, append(prefix, strings.ToUpper(ft.Name))...); err != nil {
				return err
			}
		}
		return nil
	}
	if len(prefix) > 1 { // 读取环境变量
		envKey := strings.Join(prefix, "_")
		if envValue := os.Getenv(envKey); envValue != "" {
			ev, err := config.assign(envKey, rawYaml(envValue))
			if err != nil {
				return err
			}
			config.Env = ev.Interface()
			config.Value = config.Env
			config.Ptr.Set(ev)
		}
	}
	return nil
}

// ParseUserFile 第二步读取用户配置文件，环境变量中已有的值不会被覆盖
func (config *Config) ParseUserFile(conf map[string]any) error {
	if conf == nil {
		return nil
	}
	config.File = conf
	for k, v := range conf {
		k = strings.ToLower(k)
		if !config.Has(k) {
			continue
		}
		if prop := config.Get(k); prop.props != nil {
			if child, ok := v.(map[string]any); ok {
				if err := prop.ParseUserFile(child); err != nil {
					return err
				}
			}
		} else {
			fv, err := prop.assign(k, v)
			if err != nil {
				return err
			}
			prop.File = fv.Interface()
			if prop.Env == nil {
				prop.Value = fv.Interface()
				prop.Ptr.Set(fv)
			}
		}
	}
	return nil
}

func (config *Config) GetMap() map[string]any {
	m := make(map[string]any)
	for k, v := range config.propsMap {
		if v.props != nil {
			if vv := v.GetMap(); vv != nil {
				m[k] = vv
			}
		} else if v.Value != nil {
			m[k] = v.Value
		}
	}
	if len(m) > 0 {
		return m
	}
	return nil
}

// rawYaml 环境变量中的值按 yaml 标量解析
type rawYaml string

var regexPureNumber = regexp.MustCompile(`^\d+$`)

func (config *Config) assign(k string, v any) (target reflect.Value, err error) {
	ft := config.Ptr.Type()
	source := reflect.ValueOf(v)
	if ft == durationType {
		target = reflect.New(ft).Elem()
		if !source.IsValid() || source.IsZero() {
			target.SetInt(0)
		} else if source.Type() == durationType {
			target.Set(source)
		} else {
			timeStr := fmt.Sprint(v)
			d, perr := time.ParseDuration(timeStr)
			if perr != nil || regexPureNumber.MatchString(timeStr) {
				return target, errors.Errorf("%s invalid duration value: %v please add unit (s,m,h,d)，eg: 100ms, 10s, 4m, 1h", k, v)
			}
			target.SetInt(int64(d))
		}
		return
	}
	tmpStruct := reflect.StructOf([]reflect.StructField{
		{
			Name: "V",
			Type: ft,
			Tag:  `yaml:"v"`,
		},
	})
	tmpValue := reflect.New(tmpStruct)
	var tmpByte []byte
	if raw, ok := v.(rawYaml); ok {
		tmpByte = []byte("v: " + string(raw))
	} else if tmpByte, err = yaml.Marshal(map[string]any{"v": v}); err != nil {
		return target, errors.Wrapf(err, "config %s", k)
	}
	if err = yaml.Unmarshal(tmpByte, tmpValue.Interface()); err != nil {
		return target, errors.Wrapf(err, "config %s", k)
	}
	return tmpValue.Elem().Field(0), nil
}

// Load 读取默认值、环境变量(CADENCE_ 前缀)和配置文件，配置文件可以放在 global 节点下
func Load(path string) (*Engine, error) {
	engine := new(Engine)
	defaults.SetDefaults(engine)
	var conf Config
	if err := conf.Parse(engine, "CADENCE"); err != nil {
		return nil, err
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "read config file")
		}
		var m map[string]any
		if err = yaml.Unmarshal(raw, &m); err != nil {
			return nil, errors.Wrap(err, "parsing yml")
		}
		if g, ok := m["global"].(map[string]any); ok {
			m = g
		}
		if err = conf.ParseUserFile(m); err != nil {
			return nil, err
		}
	}
	engine.raw = &conf
	return engine, nil
}
