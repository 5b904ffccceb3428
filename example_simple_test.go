package ioc_test

import (
	"context"
	"fmt"
	"reflect"

	"github.com/AtsushiSuzuki/go-ioc"
)

type MyStruct struct{}

func Example_simple() {
	c := ioc.NewContainer()
	c.RegisterDefinition("thing", ioc.NewDefinition(reflect.TypeOf(&MyStruct{})))

	v, _ := c.GetBean(context.Background(), "thing")
	fmt.Printf("v: %v (%T)", v, v)

	// Output:
	// v: &{} (*ioc_test.MyStruct)
}
