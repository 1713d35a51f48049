package sqldb

import (
	"strconv"
	"strings"
)

// PostgresKeyValueDSN builds a libpq style "key=value" DSN understood by both pgx and lib/pq.
// Empty fields are left out so server defaults apply.
func PostgresKeyValueDSN(conf *Conf) string {
	pairs := []struct{ k, v string }{
		{"host", conf.Host},
		{"user", conf.User},
		{"password", conf.PW},
		{"dbname", conf.DB},
		{"sslmode", "disable"}, // NOTE: local dev default. set `dsn` for TLS deployments
		{"TimeZone", conf.TZ},
	}
	var b strings.Builder
	for _, p := range pairs {
		if p.v == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(p.k)
		b.WriteByte('=')
		b.WriteString(quoteDSNValue(p.v))
		if p.k == "host" && conf.Port > 0 {
			b.WriteString(" port=")
			b.WriteString(strconv.Itoa(conf.Port))
		}
	}
	return b.String()
}

func quoteDSNValue(v string) string {
	if !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}
