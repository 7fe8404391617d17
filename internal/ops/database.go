package ops

import (
	"fmt"

	"slurmdbdops/internal/envfile"
	"slurmdbdops/internal/logging"
	"slurmdbdops/internal/params"
)

// mysqlUnixPortVar is the environment variable the MySQL client
// library reads for a unix socket path. It lands in the defaults file
// so slurmdbd picks it up at start.
const mysqlUnixPortVar = "MYSQL_UNIX_PORT"

// SetDatabase validates db and stores it as the accounting database
// settings for later renders.
func (m *Manager) SetDatabase(db params.Database) error {
	if err := db.Validate(); err != nil {
		m.audit.Failure(logging.AuditEventDatabaseChange, "set", db.Name, err)
		return err
	}
	if err := m.store.Put(stateKeyDatabase, db); err != nil {
		m.audit.Failure(logging.AuditEventDatabaseChange, "set", db.Name, err)
		return err
	}

	m.log.Info("database settings stored", "database", db.Name, "host", db.Host, "port", db.Port)
	m.audit.Success(logging.AuditEventDatabaseChange, "set", db.Name, map[string]any{
		"username": db.Username,
		"host":     db.Host,
		"port":     db.Port,
	})
	return nil
}

// ConfigureDatabase wires the accounting database from the
// credentials and endpoint list a MySQL provider hands out. Socket
// endpoints are preferred over tcp ones and only the first usable
// endpoint counts: a socket lands in the environment defaults file as
// a quoted MYSQL_UNIX_PORT, a tcp endpoint becomes the stored host
// and port and clears any previous socket setting. The settings are
// validated and persisted; render to push them into slurmdbd.conf.
func (m *Manager) ConfigureDatabase(username, password, endpoints string) (*params.Database, error) {
	sockets, tcp, err := params.ClassifyEndpoints(endpoints)
	if err != nil {
		m.audit.Failure(logging.AuditEventDatabaseChange, "configure", endpoints, err)
		return nil, err
	}

	db := params.Database{
		Username: username,
		Password: password,
		Name:     params.DefaultDatabaseName,
	}

	if len(sockets) > 0 {
		if len(sockets) > 1 {
			m.log.Warn("multiple socket endpoints available, only the first will be used", "count", len(sockets))
		}
		socket, err := params.SocketPath(sockets[0])
		if err != nil {
			return nil, err
		}
		m.log.Debug("using socket endpoint", "socket", socket)
		// The path is stored shell-quoted.
		if err := m.ApplyEnv(map[string]*string{
			mysqlUnixPortVar: envfile.Value(`"` + socket + `"`),
		}); err != nil {
			return nil, fmt.Errorf("set %s: %w", mysqlUnixPortVar, err)
		}
	} else {
		if len(tcp) > 1 {
			m.log.Warn("multiple tcp endpoints available, only the first will be used", "count", len(tcp))
		}
		host, port, err := params.SplitHostPort(tcp[0])
		if err != nil {
			return nil, err
		}
		db.Host, db.Port = host, port
		m.log.Debug("using tcp endpoint", "host", host, "port", port)
		if err := m.ApplyEnv(map[string]*string{
			mysqlUnixPortVar: envfile.Unset,
		}); err != nil {
			return nil, fmt.Errorf("unset %s: %w", mysqlUnixPortVar, err)
		}
	}

	if err := m.SetDatabase(db); err != nil {
		return nil, err
	}
	return &db, nil
}
