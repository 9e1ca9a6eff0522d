// Package presence - in-memory реестры живых соединений:
// кто подключен (Directory) и кто слушает какой заказ (Channels).
package presence

import (
	"sort"
	"sync"

	"github.com/Shivikagarg999/sheduled-backend/internal/tracking/domain"
)

// Directory - userId/driverId → connId и обратный индекс connId → Identity.
// Повторная регистрация перезаписывает старое соединение без уведомления.
type Directory struct {
	mu        sync.RWMutex
	users     map[string]string
	drivers   map[string]string
	byConn    map[string]domain.Identity
	available map[string]bool
}

func NewDirectory() *Directory {
	return &Directory{
		users:     make(map[string]string),
		drivers:   make(map[string]string),
		byConn:    make(map[string]domain.Identity),
		available: make(map[string]bool),
	}
}

func (d *Directory) forward(kind domain.PartyKind) map[string]string {
	if kind == domain.PartyDriver {
		return d.drivers
	}
	return d.users
}

// register вызывается под d.mu
func (d *Directory) register(id domain.Identity, connID string) {
	fwd := d.forward(id.Kind)

	// соединение уже было зарегистрировано под другой стороной
	if prev, ok := d.byConn[connID]; ok && prev != id {
		prevFwd := d.forward(prev.Kind)
		if prevFwd[prev.ID] == connID {
			delete(prevFwd, prev.ID)
			if prev.Kind == domain.PartyDriver {
				delete(d.available, prev.ID)
			}
		}
	}

	// сторона была на другом соединении: старый обратный ключ больше не валиден
	if oldConn, ok := fwd[id.ID]; ok && oldConn != connID {
		if d.byConn[oldConn] == id {
			delete(d.byConn, oldConn)
		}
	}

	fwd[id.ID] = connID
	d.byConn[connID] = id
}

// RegisterUser - вставка или перезапись
func (d *Directory) RegisterUser(userID, connID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.register(domain.Identity{Kind: domain.PartyUser, ID: userID}, connID)
}

// RegisterDriver - вставка или перезапись, водитель становится доступным
func (d *Directory) RegisterDriver(driverID, connID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.register(domain.Identity{Kind: domain.PartyDriver, ID: driverID}, connID)
	d.available[driverID] = true
}

// Lookup возвращает текущее соединение стороны
func (d *Directory) Lookup(kind domain.PartyKind, id string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	connID, ok := d.forward(kind)[id]
	return connID, ok
}

// IdentityOf - кто зарегистрирован на соединении
func (d *Directory) IdentityOf(connID string) (domain.Identity, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	id, ok := d.byConn[connID]
	return id, ok
}

// RemoveByConnection удаляет все записи соединения.
// Прямая запись удаляется, только если она еще указывает на connID.
func (d *Directory) RemoveByConnection(connID string) []domain.Identity {
	d.mu.Lock()
	defer d.mu.Unlock()

	id, ok := d.byConn[connID]
	if !ok {
		return nil
	}
	delete(d.byConn, connID)

	fwd := d.forward(id.Kind)
	if fwd[id.ID] == connID {
		delete(fwd, id.ID)
		if id.Kind == domain.PartyDriver {
			delete(d.available, id.ID)
		}
	}
	return []domain.Identity{id}
}

// SetAvailable - флаг диспетчеризации водителя; для неподключенного водителя игнорируется
func (d *Directory) SetAvailable(driverID string, available bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.drivers[driverID]; !ok {
		return
	}
	d.available[driverID] = available
}

// IsAvailable - подключен и свободен
func (d *Directory) IsAvailable(driverID string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.available[driverID]
}

// IdleDriverConnections - соединения свободных водителей, кроме except
func (d *Directory) IdleDriverConnections(except string) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	conns := make([]string, 0, len(d.drivers))
	for driverID, connID := range d.drivers {
		if connID == except || !d.available[driverID] {
			continue
		}
		conns = append(conns, connID)
	}
	sort.Strings(conns)
	return conns
}

// Entry - строка снимка для админского API
type Entry struct {
	Kind         domain.PartyKind `json:"kind"`
	ID           string           `json:"id"`
	ConnectionID string           `json:"connectionId"`
	Available    *bool            `json:"available,omitempty"`
}

// Snapshot - копия текущего состояния, отсортирована по kind и id
func (d *Directory) Snapshot() []Entry {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]Entry, 0, len(d.users)+len(d.drivers))
	for id, conn := range d.users {
		out = append(out, Entry{Kind: domain.PartyUser, ID: id, ConnectionID: conn})
	}
	for id, conn := range d.drivers {
		avail := d.available[id]
		out = append(out, Entry{Kind: domain.PartyDriver, ID: id, ConnectionID: conn, Available: &avail})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].ID < out[j].ID
	})
	return out
}
