package assert

import "fmt"

func NotNil(value any, name ...string) {
	if value == nil {
		panic(fmt.Sprintf("expected %s to be not nil", label(name)))
	}
}

func Positive(n int, name ...string) {
	if n <= 0 {
		panic(fmt.Sprintf("expected %s to be positive, got %d", label(name), n))
	}
}

func label(name []string) string {
	if len(name) == 0 {
		return "value"
	}
	return name[0]
}
