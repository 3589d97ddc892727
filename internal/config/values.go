package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}

// getSymbolMap reads a SYMBOL=value map from a config map or a
// "SYMBOL=value,..." string. Symbols are upper-cased; later duplicates win.
func getSymbolMap(v *viper.Viper, key string) map[string]string {
	out := make(map[string]string)
	if !v.IsSet(key) {
		return out
	}

	switch typed := v.Get(key).(type) {
	case map[string]string:
		for symbol, value := range typed {
			putSymbol(out, symbol, value)
		}
	case map[string]interface{}:
		for symbol, value := range typed {
			putSymbol(out, symbol, fmt.Sprintf("%v", value))
		}
	case string:
		for _, pair := range splitAndClean(typed) {
			symbol, value, ok := strings.Cut(pair, "=")
			if !ok {
				continue
			}
			putSymbol(out, symbol, value)
		}
	}
	return out
}

func putSymbol(out map[string]string, symbol, value string) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	value = strings.TrimSpace(value)
	if symbol == "" || value == "" {
		return
	}
	out[symbol] = value
}
