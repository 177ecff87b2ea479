// Package infra contém implementações concretas (infraestrutura) para os contratos
// definidos no pacote domain.
//
// Exemplos:
//   - Store: contadores por (cliente, tier) em memória, particionados em shards
//   - Sweeper: limpeza auto-reagendada das entradas expiradas do Store
//   - MemoryStatsStore / RedisStatsStore: estatísticas de decisões
//   - AsyncStatsStore: fila que tira a gravação de estatísticas do caminho da requisição
//   - ChanPool: semáforo simples para limite de requisições em voo
package infra
