package natives

import (
	"gopkg.in/gomail.v2"

	"lumen/pkg/value"
	"lumen/pkg/vm"
)

// InstallMail registers the mail module. mail.send takes a single object
// with host, port, user, pass, from, to, subject and either body or html.
func InstallMail(machine *vm.VM) {
	mod := value.NewObject()
	mod.Set("send", native("mail.send", mailSend))
	machine.SetGlobal("mail", mod)
}

func mailSend(_ value.Caller, args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, value.NewError(value.ErrTypeMismatch, "mail.send expects 1 argument, got %d", len(args))
	}
	opts, ok := args[0].(*value.Object)
	if !ok {
		return nil, value.NewError(value.ErrTypeMismatch, "mail.send expects an object, got %s", args[0].Kind())
	}

	host := stringField(opts, "host")
	user := stringField(opts, "user")
	pass := stringField(opts, "pass")
	from := stringField(opts, "from")
	to := stringField(opts, "to")
	subject := stringField(opts, "subject")
	body := stringField(opts, "body")
	html := stringField(opts, "html")

	port := 587
	if p, found := opts.Get("port"); found {
		pi, ok := p.(*value.Int)
		if !ok {
			return nil, value.NewError(value.ErrTypeMismatch, "mail.send port must be an int")
		}
		port = int(pi.Value)
	}

	if from == "" {
		from = user
	}

	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	if html != "" {
		m.SetBody("text/html", html)
	} else {
		m.SetBody("text/plain", body)
	}

	d := gomail.NewDialer(host, port, user, pass)
	if err := d.DialAndSend(m); err != nil {
		return nil, err
	}
	return value.TRUE, nil
}

func stringField(obj *value.Object, key string) string {
	v, found := obj.Get(key)
	if !found {
		return ""
	}
	s, ok := v.(*value.String)
	if !ok {
		return ""
	}
	return s.Value
}
