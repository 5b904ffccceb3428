package ioc_test

import (
	"context"
	"fmt"
	"reflect"

	"github.com/AtsushiSuzuki/go-ioc"
)

type Logger interface {
	Log(message string)
}

type myLogger struct{}

func (this *myLogger) Log(message string) {
	fmt.Println(message)
}

type myModule struct {
	Logger Logger `ioc:"logger"`
}

func (this *myModule) DoWork(name string) {
	this.Logger.Log("Hello, " + name)
}

func Example() {
	c := ioc.NewContainer()
	c.RegisterDefinition("logger", ioc.NewDefinition(reflect.TypeOf(&myLogger{})))
	c.RegisterDefinition("module", ioc.NewDefinition(reflect.TypeOf(&myModule{})))

	v, _ := c.GetBean(context.Background(), "module")
	v.(*myModule).DoWork("world")

	// Output:
	// Hello, world
}
