package component

import (
	"fmt"
	"os"
)

// paramFloat reads a numeric parameter, tolerating the int/float ambiguity of
// parsed YAML. ok is false when the key is absent.
func paramFloat(params map[string]any, key string) (float64, bool, error) {
	v, ok := params[key]
	if !ok {
		return 0, false, nil
	}
	switch n := v.(type) {
	case float64:
		return n, true, nil
	case float32:
		return float64(n), true, nil
	case int:
		return float64(n), true, nil
	case int64:
		return float64(n), true, nil
	default:
		return 0, true, fmt.Errorf("%s: expected a number, got %T", key, v)
	}
}

// paramInt reads an integer parameter. ok is false when the key is absent.
func paramInt(params map[string]any, key string) (int, bool, error) {
	f, ok, err := paramFloat(params, key)
	if err != nil || !ok {
		return 0, ok, err
	}
	if f != float64(int(f)) {
		return 0, true, fmt.Errorf("%s: expected an integer, got %v", key, f)
	}
	return int(f), true, nil
}

// paramString reads a string parameter. ok is false when the key is absent.
func paramString(params map[string]any, key string) (string, bool, error) {
	v, ok := params[key]
	if !ok {
		return "", false, nil
	}
	s, isStr := v.(string)
	if !isStr {
		return "", true, fmt.Errorf("%s: expected a string, got %T", key, v)
	}
	return s, true, nil
}

// requirePositiveInt checks that a parameter, when present, is a positive integer.
func requirePositiveInt(params map[string]any, key string) error {
	n, ok, err := paramInt(params, key)
	if err != nil {
		return err
	}
	if ok && n <= 0 {
		return fmt.Errorf("%s must be positive, got %d", key, n)
	}
	return nil
}

// envOrParam resolves a string parameter with an environment variable fallback.
func envOrParam(params map[string]any, key, envVar string) (string, error) {
	s, ok, err := paramString(params, key)
	if err != nil {
		return "", err
	}
	if ok && s != "" {
		return s, nil
	}
	return os.Getenv(envVar), nil
}
