package dialect

import (
	"net"
	"net/url"
	"strconv"
	"strings"

	mssql "github.com/microsoft/go-mssqldb"
)

// MSSQL targets SQL Server through the sys.* and INFORMATION_SCHEMA catalogs.
type MSSQL struct{}

func (MSSQL) Name() string { return "mssql" }

func (MSSQL) DriverName() string { return "sqlserver" }

func (MSSQL) DSN(params ConnParams) string {
	port := params.Port
	if port == 0 {
		port = 1433
	}
	query := url.Values{}
	if params.Database != "" {
		query.Set("database", params.Database)
	}
	if params.TrustServerCertificate {
		query.Set("TrustServerCertificate", "true")
	}
	if seconds := connectTimeoutSeconds(params.ConnectTimeout); seconds > 0 {
		query.Set("connection timeout", strconv.Itoa(seconds))
	}
	u := &url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(params.User, params.Password),
		Host:     net.JoinHostPort(params.Host, strconv.Itoa(port)),
		RawQuery: query.Encode(),
	}
	return u.String()
}

func (MSSQL) ListTablesQuery() string {
	return `
SELECT TABLE_NAME AS table_name
FROM INFORMATION_SCHEMA.TABLES
WHERE TABLE_TYPE = 'BASE TABLE'
ORDER BY TABLE_NAME`
}

func (MSSQL) TableSchemaQuery() string {
	return `
SELECT
    c.name AS column_name,
    t.name AS data_type,
    CASE WHEN c.is_nullable = 1 THEN 'YES' ELSE 'NO' END AS is_nullable,
    CASE
        WHEN t.name IN ('varchar', 'nvarchar', 'char', 'nchar')
        THEN CAST(c.max_length AS VARCHAR(10))
        ELSE NULL
    END AS max_length,
    CASE
        WHEN t.name IN ('decimal', 'numeric')
        THEN CAST(c.precision AS VARCHAR(10)) + ',' + CAST(c.scale AS VARCHAR(10))
        ELSE NULL
    END AS precision_scale
FROM sys.columns c
INNER JOIN sys.types t ON c.user_type_id = t.user_type_id
WHERE c.object_id = OBJECT_ID(@p1)
ORDER BY c.column_id`
}

func (MSSQL) PrimaryKeysQuery() string {
	return `
SELECT
    OBJECT_NAME(t.object_id) AS table_name,
    c.name AS column_name
FROM sys.tables t
INNER JOIN sys.indexes i ON t.object_id = i.object_id
INNER JOIN sys.index_columns ic ON i.object_id = ic.object_id AND i.index_id = ic.index_id
INNER JOIN sys.columns c ON ic.object_id = c.object_id AND ic.column_id = c.column_id
WHERE i.is_primary_key = 1
ORDER BY OBJECT_NAME(t.object_id), ic.key_ordinal`
}

func (MSSQL) ForeignKeysQuery() string {
	return `
SELECT
    OBJECT_NAME(fk.parent_object_id) AS table_name,
    COL_NAME(fkc.parent_object_id, fkc.parent_column_id) AS column_name,
    OBJECT_NAME(fk.referenced_object_id) AS foreign_table_name,
    COL_NAME(fkc.referenced_object_id, fkc.referenced_column_id) AS foreign_column_name
FROM sys.foreign_keys fk
INNER JOIN sys.foreign_key_columns fkc ON fk.object_id = fkc.constraint_object_id
ORDER BY OBJECT_NAME(fk.parent_object_id)`
}

func (MSSQL) SampleRowQuery(table string) string {
	return "SELECT TOP 1 * FROM " + quoteBracket(table)
}

func (MSSQL) Placeholder(n int) string { return "@p" + strconv.Itoa(n) }

// ContainsOperator is LIKE: default SQL Server collations are case-insensitive.
func (MSSQL) ContainsOperator() string { return "LIKE" }

// ApplyLimit rewrites the leading SELECT into SELECT TOP n.
func (MSSQL) ApplyLimit(statement string, n int) string {
	trimmed := strings.TrimLeft(statement, " \t\r\n")
	if len(trimmed) < len("SELECT") || !strings.EqualFold(trimmed[:len("SELECT")], "SELECT") {
		return statement
	}
	rest := trimmed[len("SELECT"):]
	if head := strings.TrimLeft(rest, " "); len(head) >= len("DISTINCT") && strings.EqualFold(head[:len("DISTINCT")], "DISTINCT") {
		return "SELECT DISTINCT TOP " + strconv.Itoa(n) + head[len("DISTINCT"):]
	}
	return "SELECT TOP " + strconv.Itoa(n) + rest
}

// ReadOnlyTx is false: SQL Server rejects read-only transaction options.
func (MSSQL) ReadOnlyTx() bool { return false }

func (MSSQL) NormalizeValue(databaseType string, value any) any {
	if strings.EqualFold(databaseType, "UNIQUEIDENTIFIER") {
		raw, ok := value.([]byte)
		if !ok || len(raw) != 16 {
			return value
		}
		var id mssql.UniqueIdentifier
		if err := id.Scan(raw); err != nil {
			return value
		}
		return id.String()
	}
	return value
}

func quoteBracket(ident string) string {
	return "[" + strings.ReplaceAll(ident, "]", "]]") + "]"
}
