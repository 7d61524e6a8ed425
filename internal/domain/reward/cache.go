package reward

import (
	"container/list"
	"slices"
	"sync"
	"time"
)

const (
	DefaultMaxPlayers  = 10000
	DefaultExpireAfter = 720 * time.Hour
)

type entry struct {
	player     string
	claims     map[string]time.Time
	lastAccess time.Time
}

// Cache хранит время последних наград по игрокам.
// Ограничен по числу игроков (вытесняется давно не использованный) и по времени с последнего доступа.
// Вытеснение только освобождает память.
type Cache struct {
	mu          sync.Mutex
	items       map[string]*list.Element
	order       *list.List // front - самый свежий доступ
	maxPlayers  int
	expireAfter time.Duration
}

func NewCache(maxPlayers int, expireAfter time.Duration) *Cache {
	if maxPlayers <= 0 {
		maxPlayers = DefaultMaxPlayers
	}
	if expireAfter <= 0 {
		expireAfter = DefaultExpireAfter
	}
	return &Cache{
		items:       make(map[string]*list.Element),
		order:       list.New(),
		maxPlayers:  maxPlayers,
		expireAfter: expireAfter,
	}
}

// CanClaim reports whether the cooldown for (player, rewardType) has passed.
func (c *Cache) CanClaim(player, rewardType string, cooldown time.Duration, now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canClaimLocked(player, rewardType, cooldown, now)
}

// Claim атомарно проверяет кулдаун и записывает новое время получения.
func (c *Cache) Claim(player, rewardType string, cooldown time.Duration, now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.canClaimLocked(player, rewardType, cooldown, now) {
		return false
	}

	e := c.lookup(player, now)
	if e == nil {
		e = c.add(player, now)
	}
	e.claims[rewardType] = now
	return true
}

// Remaining - сколько осталось до конца кулдауна, 0 если награда доступна
func (c *Cache) Remaining(player, rewardType string, cooldown time.Duration, now time.Time) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.lookup(player, now)
	if e == nil {
		return 0
	}
	last, ok := e.claims[rewardType]
	if !ok {
		return 0
	}
	if rem := cooldown - now.Sub(last); rem > 0 {
		return rem
	}
	return 0
}

// Hydrate заменяет содержимое. Если игроков больше лимита, остаются те, кто получал награды позже.
func (c *Cache) Hydrate(data map[string]map[string]time.Time, now time.Time) {
	type player struct {
		id     string
		latest time.Time
	}
	players := make([]player, 0, len(data))
	for id, claims := range data {
		p := player{id: id}
		for _, at := range claims {
			if at.After(p.latest) {
				p.latest = at
			}
		}
		players = append(players, p)
	}
	slices.SortFunc(players, func(a, b player) int {
		return a.latest.Compare(b.latest)
	})

	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element, len(players))
	c.order.Init()
	for _, p := range players {
		e := c.add(p.id, now)
		for typ, at := range data[p.id] {
			e.claims[typ] = at
		}
	}
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *Cache) canClaimLocked(player, rewardType string, cooldown time.Duration, now time.Time) bool {
	e := c.lookup(player, now)
	if e == nil {
		return true
	}
	last, ok := e.claims[rewardType]
	if !ok {
		return true
	}
	return now.Sub(last) >= cooldown
}

// lookup продлевает жизнь найденной записи; просроченная удаляется
func (c *Cache) lookup(player string, now time.Time) *entry {
	el, ok := c.items[player]
	if !ok {
		return nil
	}
	e := el.Value.(*entry)
	if now.Sub(e.lastAccess) >= c.expireAfter {
		c.remove(el)
		return nil
	}
	e.lastAccess = now
	c.order.MoveToFront(el)
	return e
}

func (c *Cache) add(player string, now time.Time) *entry {
	e := &entry{player: player, claims: make(map[string]time.Time), lastAccess: now}
	c.items[player] = c.order.PushFront(e)

	for c.order.Len() > c.maxPlayers {
		c.remove(c.order.Back())
	}
	// просроченные собираются с хвоста
	for back := c.order.Back(); back != nil; back = c.order.Back() {
		if now.Sub(back.Value.(*entry).lastAccess) < c.expireAfter {
			break
		}
		c.remove(back)
	}
	return e
}

func (c *Cache) remove(el *list.Element) {
	e := c.order.Remove(el).(*entry)
	delete(c.items, e.player)
}
