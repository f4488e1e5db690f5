package natives

import (
	"net/http"

	"github.com/gorilla/websocket"

	"lumen/pkg/value"
	"lumen/pkg/vm"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allow all origins for now
	CheckOrigin: func(r *http.Request) bool { return true },
}

// InstallWS registers the ws module. ws.serve(addr, handler) accepts
// websocket connections and runs the handler once per connection on an
// isolated sub-VM, so concurrent handlers never share a value stack.
func InstallWS(machine *vm.VM) {
	mod := value.NewObject()
	mod.Set("serve", native("ws.serve", wsServe))
	machine.SetGlobal("ws", mod)
}

func wsServe(c value.Caller, args []value.Value) (value.Value, error) {
	if len(args) != 2 {
		return nil, value.NewError(value.ErrTypeMismatch, "ws.serve expects 2 arguments, got %d", len(args))
	}
	addr, ok := args[0].(*value.String)
	if !ok {
		return nil, value.NewError(value.ErrTypeMismatch, "ws.serve address must be a string")
	}
	handler := args[1]
	if handler.Kind() != value.KindClosure {
		return nil, value.NewError(value.ErrNotCallable, "ws.serve handler must be a function, got %s", handler.Kind())
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		go func() {
			defer conn.Close()
			c.RunClosure(handler, []value.Value{connObject(conn)})
		}()
	})

	return value.NULL, http.ListenAndServe(addr.Value, mux)
}

// connObject wraps a live connection as a script object with send,
// receive and close bound to it.
func connObject(conn *websocket.Conn) *value.Object {
	obj := value.NewObject()
	obj.Set("send", native("conn.send", func(_ value.Caller, args []value.Value) (value.Value, error) {
		if len(args) != 1 {
			return nil, value.NewError(value.ErrTypeMismatch, "conn.send expects 1 argument, got %d", len(args))
		}
		return value.NULL, conn.WriteMessage(websocket.TextMessage, []byte(value.Stringify(args[0])))
	}))
	obj.Set("receive", native("conn.receive", func(_ value.Caller, args []value.Value) (value.Value, error) {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return value.UNDEFINED, nil
		}
		if msgType != websocket.TextMessage {
			return &value.Buffer{Data: data}, nil
		}
		return &value.String{Value: string(data)}, nil
	}))
	obj.Set("close", native("conn.close", func(_ value.Caller, args []value.Value) (value.Value, error) {
		return value.NULL, conn.Close()
	}))
	return obj
}
