package natives

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"lumen/pkg/value"
	"lumen/pkg/vm"
)

// InstallAuth registers the auth module: password hashing via bcrypt and
// HS256 token signing via jwt.
func InstallAuth(machine *vm.VM) {
	mod := value.NewObject()
	mod.Set("hashPassword", native("auth.hashPassword", authHashPassword))
	mod.Set("verifyPassword", native("auth.verifyPassword", authVerifyPassword))
	mod.Set("sign", native("auth.sign", authSign))
	mod.Set("verify", native("auth.verify", authVerify))
	machine.SetGlobal("auth", mod)
}

func authHashPassword(_ value.Caller, args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, value.NewError(value.ErrTypeMismatch, "auth.hashPassword expects 1 argument, got %d", len(args))
	}
	password, ok := args[0].(*value.String)
	if !ok {
		return nil, value.NewError(value.ErrTypeMismatch, "auth.hashPassword expects a string, got %s", args[0].Kind())
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password.Value), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return &value.String{Value: string(hash)}, nil
}

func authVerifyPassword(_ value.Caller, args []value.Value) (value.Value, error) {
	if len(args) != 2 {
		return nil, value.NewError(value.ErrTypeMismatch, "auth.verifyPassword expects 2 arguments, got %d", len(args))
	}
	hash, ok := args[0].(*value.String)
	if !ok {
		return nil, value.NewError(value.ErrTypeMismatch, "auth.verifyPassword hash must be a string")
	}
	password, ok := args[1].(*value.String)
	if !ok {
		return nil, value.NewError(value.ErrTypeMismatch, "auth.verifyPassword password must be a string")
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash.Value), []byte(password.Value))
	return value.NewBool(err == nil), nil
}

// authSign signs an object payload as HS256 claims. The third argument
// is a Go duration string ("24h", "15m") controlling expiry.
func authSign(_ value.Caller, args []value.Value) (value.Value, error) {
	if len(args) != 3 {
		return nil, value.NewError(value.ErrTypeMismatch, "auth.sign expects 3 arguments, got %d", len(args))
	}
	payload, ok := args[0].(*value.Object)
	if !ok {
		return nil, value.NewError(value.ErrTypeMismatch, "auth.sign payload must be an object, got %s", args[0].Kind())
	}
	secret, ok := args[1].(*value.String)
	if !ok {
		return nil, value.NewError(value.ErrTypeMismatch, "auth.sign secret must be a string")
	}
	expiresIn, ok := args[2].(*value.String)
	if !ok {
		return nil, value.NewError(value.ErrTypeMismatch, "auth.sign expiry must be a duration string")
	}

	duration, err := time.ParseDuration(expiresIn.Value)
	if err != nil {
		return nil, fmt.Errorf("invalid duration: %v", err)
	}

	claims := jwt.MapClaims{}
	for _, k := range payload.Keys {
		claims[k] = claimValue(payload.Pairs[k])
	}
	claims["exp"] = time.Now().Add(duration).Unix()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret.Value))
	if err != nil {
		return nil, err
	}
	return &value.String{Value: signed}, nil
}

func authVerify(_ value.Caller, args []value.Value) (value.Value, error) {
	if len(args) != 2 {
		return nil, value.NewError(value.ErrTypeMismatch, "auth.verify expects 2 arguments, got %d", len(args))
	}
	tokenString, ok := args[0].(*value.String)
	if !ok {
		return nil, value.NewError(value.ErrTypeMismatch, "auth.verify token must be a string")
	}
	secret, ok := args[1].(*value.String)
	if !ok {
		return nil, value.NewError(value.ErrTypeMismatch, "auth.verify secret must be a string")
	}

	token, err := jwt.Parse(tokenString.Value, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret.Value), nil
	})
	if err != nil {
		return value.UNDEFINED, nil
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return value.UNDEFINED, nil
	}

	out := value.NewObject()
	for k, v := range claims {
		out.Set(k, fromClaim(v))
	}
	return out, nil
}

func claimValue(v value.Value) interface{} {
	switch v := v.(type) {
	case *value.Int:
		return int64(v.Value)
	case *value.Float:
		return v.Value
	case *value.Bool:
		return v.Value
	case *value.String:
		return v.Value
	}
	return value.Stringify(v)
}

func fromClaim(v interface{}) value.Value {
	switch v := v.(type) {
	case string:
		return &value.String{Value: v}
	case bool:
		return value.NewBool(v)
	case float64:
		if v == float64(int64(v)) {
			return value.NewInt(int64(v))
		}
		return &value.Float{Value: v}
	case int64:
		return value.NewInt(v)
	}
	return &value.String{Value: fmt.Sprintf("%v", v)}
}
