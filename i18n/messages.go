package i18n

// english holds the built-in templates. Templates are prefixed with the
// "key" template unless they start with "!!".
var english = Catalog{
	"root": "value",
	"key":  `"{{!label}}" `,

	"any.unknown":   "is not allowed",
	"any.invalid":   "contains an invalid value",
	"any.empty":     "is not allowed to be empty",
	"any.required":  "is required",
	"any.allowOnly": "must be one of {{valids}}",
	"any.default":   "threw an error when running default method",
	"any.ref":       `references "{{ref}}" which could not be resolved`,
	"any.custom":    "failed custom validation because {{error}}",

	"alternatives.base":  "not matching any of the allowed alternatives",
	"alternatives.match": "does not match any of the allowed types",

	"array.base":                     "must be an array",
	"array.includes":                 "at position {{pos}} does not match any of the allowed types",
	"array.includesSingle":           `single value of "{{!label}}" does not match any of the allowed types`,
	"array.includesRequiredUnknowns": "does not contain {{unknownMisses}} required value(s)",
	"array.includesRequiredKnowns":   "does not contain {{knownMisses}}",
	"array.includesRequiredBoth":     "does not contain {{knownMisses}} and {{unknownMisses}} other required value(s)",
	"array.excludes":                 "at position {{pos}} contains an excluded value",
	"array.excludesSingle":           `single value of "{{!label}}" contains an excluded value`,
	"array.min":                      "must contain at least {{limit}} items",
	"array.max":                      "must contain less than or equal to {{limit}} items",
	"array.length":                   "must contain {{limit}} items",
	"array.orderedLength":            "at position {{pos}} fails because array must contain at most {{limit}} items",
	"array.ref":                      `references "{{ref}}" which is not a positive integer`,
	"array.sparse":                   "must not be a sparse array",
	"array.unique":                   "position {{pos}} contains a duplicate value",

	"boolean.base": "must be a boolean",

	"binary.base":   "must be a buffer or a string",
	"binary.min":    "must be at least {{limit}} bytes",
	"binary.max":    "must be less than or equal to {{limit}} bytes",
	"binary.length": "must be {{limit}} bytes",
	"binary.ref":    `references "{{ref}}" which is not a positive integer`,

	"date.base":                 "must be a number of milliseconds or valid date string",
	"date.format":               "must be a string with one of the following formats {{format}}",
	"date.min":                  `must be larger than or equal to "{{limit}}"`,
	"date.max":                  `must be less than or equal to "{{limit}}"`,
	"date.less":                 `must be less than "{{limit}}"`,
	"date.greater":              `must be greater than "{{limit}}"`,
	"date.isoDate":              "must be a valid ISO 8601 date",
	"date.timestamp.javascript": "must be a valid timestamp or number of milliseconds",
	"date.timestamp.unix":       "must be a valid timestamp or number of seconds",
	"date.ref":                  `references "{{ref}}" which is not a date`,

	"function.base":     "must be a Function",
	"function.arity":    "must have an arity of {{n}}",
	"function.minArity": "must have an arity greater or equal to {{n}}",
	"function.maxArity": "must have an arity lesser or equal to {{n}}",
	"function.ref":      "must be a reference",

	"lazy.base":   "!!schema error: lazy schema must be set",
	"lazy.schema": "!!schema error: lazy schema function must return a schema",

	"object.base":            "must be an object",
	"object.min":             "must have at least {{limit}} children",
	"object.max":             "must have less than or equal to {{limit}} children",
	"object.length":          "must have {{limit}} children",
	"object.allowUnknown":    `!!"{{!child}}" is not allowed`,
	"object.with":            `!!"{{mainWithLabel}}" missing required peer "{{peerWithLabel}}"`,
	"object.without":         `!!"{{mainWithLabel}}" conflict with forbidden peer "{{peerWithLabel}}"`,
	"object.missing":         "must contain at least one of {{peersWithLabels}}",
	"object.xor":             "contains a conflict between exclusive peers {{peersWithLabels}}",
	"object.oxor":            "contains a conflict between optional exclusive peers {{peersWithLabels}}",
	"object.and":             "contains {{presentWithLabels}} without its required peers {{missingWithLabels}}",
	"object.nand":            `!!"{{mainWithLabel}}" must not exist simultaneously with {{peersWithLabels}}`,
	"object.assert":          `!!"{{ref}}" validation failed because "{{ref}}" failed to {{message}}`,
	"object.rename.multiple": `cannot rename child "{{from}}" because multiple renames are disabled and another key was already renamed to "{{to}}"`,
	"object.rename.override": `cannot rename child "{{from}}" because override is disabled and target "{{to}}" exists`,
	"object.ref":             `references "{{ref}}" which is not a positive integer`,

	"number.base":      "must be a number",
	"number.min":       "must be larger than or equal to {{limit}}",
	"number.max":       "must be less than or equal to {{limit}}",
	"number.less":      "must be less than {{limit}}",
	"number.greater":   "must be greater than {{limit}}",
	"number.integer":   "must be an integer",
	"number.negative":  "must be a negative number",
	"number.positive":  "must be a positive number",
	"number.precision": "must have no more than {{limit}} decimal places",
	"number.ref":       `references "{{ref}}" which is not a number`,
	"number.multiple":  "must be a multiple of {{multiple}}",
	"number.port":      "must be a port number",

	"string.base":              "must be a string",
	"string.min":               "length must be at least {{limit}} characters long",
	"string.max":               "length must be less than or equal to {{limit}} characters long",
	"string.length":            "length must be {{limit}} characters long",
	"string.alphanum":          "must only contain alpha-numeric characters",
	"string.token":             "must only contain alpha-numeric and underscore characters",
	"string.regex.base":        `with value "{{!value}}" fails to match the required pattern: {{pattern}}`,
	"string.regex.name":        `with value "{{!value}}" fails to match the {{name}} pattern`,
	"string.regex.invert.base": `with value "{{!value}}" matches the inverted pattern: {{pattern}}`,
	"string.regex.invert.name": `with value "{{!value}}" matches the inverted {{name}} pattern`,
	"string.email":             "must be a valid email",
	"string.uri":               "must be a valid uri",
	"string.uriRelativeOnly":   "must be a valid relative uri",
	"string.uriCustomScheme":   "must be a valid uri with a scheme matching the {{scheme}} pattern",
	"string.isoDate":           "must be a valid ISO 8601 date",
	"string.guid":              "must be a valid GUID",
	"string.hex":               "must only contain hexadecimal characters",
	"string.hexAlign":          "hex decoded representation must be byte aligned",
	"string.base64":            "must be a valid base64 string",
	"string.dataUri":           "must be a valid dataUri string",
	"string.hostname":          "must be a valid hostname",
	"string.normalize":         "must be unicode normalized in the {{form}} form",
	"string.lowercase":         "must only contain lowercase characters",
	"string.uppercase":         "must only contain uppercase characters",
	"string.trim":              "must not have leading or trailing whitespace",
	"string.creditCard":        "must be a credit card",
	"string.ref":               `references "{{ref}}" which is not a number`,
	"string.ip":                "must be a valid ip address with a {{cidr}} CIDR",
	"string.ipVersion":         "must be a valid ip address of one of the following versions {{version}} with a {{cidr}} CIDR",

	"symbol.base": "must be a symbol",
	"symbol.map":  "must be one of {{map}}",
}

var japanese = Catalog{
	"root": "値",

	"any.unknown":   "は許可されていません",
	"any.invalid":   "に不正な値が含まれています",
	"any.empty":     "は空にできません",
	"any.required":  "は必須です",
	"any.allowOnly": "は {{valids}} のいずれかである必要があります",
	"any.ref":       `が参照する "{{ref}}" を解決できません`,
	"any.custom":    "のカスタム検証に失敗しました: {{error}}",

	"alternatives.base":  "は許可された候補のいずれにも一致しません",
	"alternatives.match": "は許可された型のいずれにも一致しません",

	"array.base":     "は配列である必要があります",
	"array.includes": "の位置 {{pos}} の要素が許可された型に一致しません",
	"array.excludes": "の位置 {{pos}} に除外された値が含まれています",
	"array.min":      "は {{limit}} 個以上の要素が必要です",
	"array.max":      "は {{limit}} 個以下の要素である必要があります",
	"array.length":   "は {{limit}} 個の要素である必要があります",
	"array.sparse":   "は疎な配列にできません",
	"array.unique":   "の位置 {{pos}} に重複した値があります",

	"boolean.base": "は真偽値である必要があります",

	"binary.base": "はバイト列または文字列である必要があります",

	"date.base": "はミリ秒数または有効な日付文字列である必要があります",
	"date.min":  `は "{{limit}}" 以降である必要があります`,
	"date.max":  `は "{{limit}}" 以前である必要があります`,

	"function.base": "は関数である必要があります",

	"object.base":         "はオブジェクトである必要があります",
	"object.allowUnknown": `!!"{{!child}}" は許可されていません`,
	"object.min":          "は {{limit}} 個以上のキーが必要です",
	"object.max":          "は {{limit}} 個以下のキーである必要があります",
	"object.with":         `!!"{{mainWithLabel}}" には "{{peerWithLabel}}" が必要です`,
	"object.without":      `!!"{{mainWithLabel}}" は "{{peerWithLabel}}" と同時に指定できません`,
	"object.missing":      "には {{peersWithLabels}} のいずれかが必要です",
	"object.xor":          "の {{peersWithLabels}} は排他的です",

	"number.base":     "は数値である必要があります",
	"number.min":      "は {{limit}} 以上である必要があります",
	"number.max":      "は {{limit}} 以下である必要があります",
	"number.less":     "は {{limit}} 未満である必要があります",
	"number.greater":  "は {{limit}} より大きい必要があります",
	"number.integer":  "は整数である必要があります",
	"number.positive": "は正の数である必要があります",
	"number.negative": "は負の数である必要があります",

	"string.base":   "は文字列である必要があります",
	"string.min":    "は {{limit}} 文字以上である必要があります",
	"string.max":    "は {{limit}} 文字以下である必要があります",
	"string.length": "は {{limit}} 文字である必要があります",
	"string.email":  "は有効なメールアドレスである必要があります",
	"string.guid":   "は有効な GUID である必要があります",

	"symbol.base": "はシンボルである必要があります",
}
