package natives

import (
	"fmt"
	"os"
	"strings"
	"time"

	"lumen/pkg/value"
	"lumen/pkg/vm"
)

// Install registers the full native surface on a VM: the core free
// functions plus the auth, ws and mail modules.
func Install(machine *vm.VM) {
	InstallCore(machine)
	InstallAuth(machine)
	InstallWS(machine)
	InstallMail(machine)
}

// InstallCore registers the free functions every script gets.
func InstallCore(machine *vm.VM) {
	machine.SetGlobal("print", native("print", nativePrint))
	machine.SetGlobal("type", native("type", nativeType))
	machine.SetGlobal("len", native("len", nativeLen))
	machine.SetGlobal("str", native("str", nativeStr))
	machine.SetGlobal("clock", native("clock", nativeClock))
	machine.SetGlobal("env", native("env", nativeEnv))
}

func native(name string, fn value.NativeFn) *value.Native {
	return &value.Native{Name: name, Fn: fn}
}

func nativePrint(_ value.Caller, args []value.Value) (value.Value, error) {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = value.Stringify(a)
	}
	fmt.Println(strings.Join(parts, " "))
	return value.NULL, nil
}

func nativeType(_ value.Caller, args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, value.NewError(value.ErrTypeMismatch, "type expects 1 argument, got %d", len(args))
	}
	return &value.String{Value: args[0].Kind().String()}, nil
}

func nativeLen(_ value.Caller, args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, value.NewError(value.ErrTypeMismatch, "len expects 1 argument, got %d", len(args))
	}
	switch v := args[0].(type) {
	case *value.String:
		return value.NewInt(int64(len(v.Value))), nil
	case *value.Array:
		return value.NewInt(int64(len(v.Elements))), nil
	case *value.Object:
		return value.NewInt(int64(len(v.Keys))), nil
	case *value.Buffer:
		return value.NewInt(int64(len(v.Data))), nil
	}
	return nil, value.NewError(value.ErrTypeMismatch, "len does not support %s", args[0].Kind())
}

func nativeStr(_ value.Caller, args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, value.NewError(value.ErrTypeMismatch, "str expects 1 argument, got %d", len(args))
	}
	return &value.String{Value: value.Stringify(args[0])}, nil
}

func nativeClock(_ value.Caller, args []value.Value) (value.Value, error) {
	return &value.Float{Value: float64(time.Now().UnixNano()) / 1e9}, nil
}

func nativeEnv(_ value.Caller, args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, value.NewError(value.ErrTypeMismatch, "env expects 1 argument, got %d", len(args))
	}
	name, ok := args[0].(*value.String)
	if !ok {
		return nil, value.NewError(value.ErrTypeMismatch, "env expects a string, got %s", args[0].Kind())
	}
	v, found := os.LookupEnv(name.Value)
	if !found {
		return value.UNDEFINED, nil
	}
	return &value.String{Value: v}, nil
}
