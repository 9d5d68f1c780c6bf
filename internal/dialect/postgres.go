package dialect

import (
	"net"
	"net/url"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Postgres targets PostgreSQL through information_schema and pg_catalog,
// scoped to current_schema().
type Postgres struct{}

func (Postgres) Name() string { return "postgres" }

func (Postgres) DriverName() string { return "pgx" }

func (Postgres) DSN(params ConnParams) string {
	port := params.Port
	if port == 0 {
		port = 5432
	}
	query := url.Values{}
	query.Set("sslmode", "disable")
	if seconds := connectTimeoutSeconds(params.ConnectTimeout); seconds > 0 {
		query.Set("connect_timeout", strconv.Itoa(seconds))
	}
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(params.User, params.Password),
		Host:     net.JoinHostPort(params.Host, strconv.Itoa(port)),
		Path:     "/" + params.Database,
		RawQuery: query.Encode(),
	}
	return u.String()
}

func (Postgres) ListTablesQuery() string {
	return `
SELECT table_name
FROM information_schema.tables
WHERE table_schema = current_schema()
  AND table_type = 'BASE TABLE'
ORDER BY table_name`
}

func (Postgres) TableSchemaQuery() string {
	return `
SELECT
    c.column_name,
    c.data_type,
    c.is_nullable,
    CASE
        WHEN c.data_type IN ('character varying', 'character')
        THEN c.character_maximum_length::text
    END AS max_length,
    CASE
        WHEN c.data_type = 'numeric' AND c.numeric_precision IS NOT NULL
        THEN c.numeric_precision::text || ',' || c.numeric_scale::text
    END AS precision_scale
FROM information_schema.columns c
WHERE c.table_schema = current_schema()
  AND c.table_name = $1
ORDER BY c.ordinal_position`
}

func (Postgres) PrimaryKeysQuery() string {
	return `
SELECT tc.table_name, kcu.column_name
FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage kcu
  ON tc.constraint_name = kcu.constraint_name
 AND tc.table_schema = kcu.table_schema
 AND tc.table_name = kcu.table_name
WHERE tc.constraint_type = 'PRIMARY KEY'
  AND tc.table_schema = current_schema()
ORDER BY tc.table_name, kcu.ordinal_position`
}

func (Postgres) ForeignKeysQuery() string {
	return `
SELECT
    cl.relname AS table_name,
    att.attname AS column_name,
    fcl.relname AS foreign_table_name,
    fatt.attname AS foreign_column_name
FROM pg_catalog.pg_constraint con
JOIN pg_catalog.pg_class cl ON cl.oid = con.conrelid
JOIN pg_catalog.pg_class fcl ON fcl.oid = con.confrelid
JOIN pg_catalog.pg_namespace ns ON ns.oid = cl.relnamespace
CROSS JOIN LATERAL unnest(con.conkey, con.confkey) WITH ORDINALITY AS k(attnum, fattnum, ord)
JOIN pg_catalog.pg_attribute att ON att.attrelid = con.conrelid AND att.attnum = k.attnum
JOIN pg_catalog.pg_attribute fatt ON fatt.attrelid = con.confrelid AND fatt.attnum = k.fattnum
WHERE con.contype = 'f'
  AND ns.nspname = current_schema()
ORDER BY cl.relname, con.conname, k.ord`
}

func (Postgres) SampleRowQuery(table string) string {
	return "SELECT * FROM " + quoteDouble(table) + " LIMIT 1"
}

func (Postgres) Placeholder(n int) string { return "$" + strconv.Itoa(n) }

func (Postgres) ContainsOperator() string { return "ILIKE" }

func (Postgres) ApplyLimit(statement string, n int) string {
	return statement + " LIMIT " + strconv.Itoa(n)
}

func (Postgres) ReadOnlyTx() bool { return true }

func (Postgres) NormalizeValue(_ string, value any) any {
	return value
}

func quoteDouble(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
