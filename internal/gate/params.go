package gate

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// Args — аргументы вызова защищаемой операции: упорядоченные позиционные
// плюс именованные. Обе части попадают в parameter map запроса на согласование.
type Args struct {
	Positional []any
	Named      map[string]any
}

// SerializeParams превращает аргументы вызова в transport-safe map по
// объявленной таблице имен параметров (capability table):
//   - позиционный аргумент i получает имя paramNames[i];
//   - переполнение таблицы получает синтетическое имя argN по позиции;
//   - именованные аргументы домердживаются как есть.
//
// Каждое значение проверяется на сериализуемость отдельно: что не кодируется
// в JSON — заменяется sentinel-строкой с именем типа. Функция тотальна,
// ошибок не возвращает и состояние не трогает.
func SerializeParams(paramNames []string, args Args) map[string]any {
	params := make(map[string]any, len(args.Positional)+len(args.Named))

	for i, v := range args.Positional {
		name := fmt.Sprintf("arg%d", i)
		if i < len(paramNames) {
			name = paramNames[i]
		}
		params[name] = safeValue(name, v)
	}

	for name, v := range args.Named {
		params[name] = safeValue(name, v)
	}

	return params
}

// safeValue кодирует пробную пару {name: value}; при любой ошибке кодирования
// подставляет sentinel с runtime-именем типа
func safeValue(name string, v any) any {
	if _, err := json.Marshal(map[string]any{name: v}); err != nil {
		return fmt.Sprintf("<unserializable: %s>", typeName(v))
	}
	return v
}

func typeName(v any) string {
	t := reflect.TypeOf(v)
	if t == nil {
		return "nil"
	}
	return t.String()
}
