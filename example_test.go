package vschema_test

import (
	"fmt"

	"github.com/reoring/vschema"
)

func ExampleObject() {
	s := vschema.Object(map[string]any{
		"name": vschema.String().Required(),
		"age":  vschema.Number().Integer().Min(0),
	})
	res := s.Validate(map[string]any{"age": "7"})
	fmt.Println(res.Error)
	res = s.Validate(map[string]any{"name": "ann", "age": "7"})
	fmt.Println(res.Value.(map[string]any)["age"])
	// Output:
	// "name" is required
	// 7
}
