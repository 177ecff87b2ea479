// Package admission fornece o adapter HTTP (net/http) do controle de admissão
// por cliente e o limite de requisições em voo.
//
// Visão geral (camadas):
//
//   - domain: Policy, Decision e contratos (sem dependência de net/http)
//   - application: Registry de tiers, perfis e o Service de decisão
//   - infra: Store particionado, Sweeper, estatísticas, semáforo
//   - admission (este pacote): isenções, resolução de cliente, Admit e
//     tradução da decisão para status/headers/JSON
//
// Fluxo por requisição:
//
//  1. Regras de isenção (prefixos de rota, loopback em dev). Se casar, o
//     motor nem é chamado e nenhum estado é criado.
//  2. Resolve a chave do cliente (X-Forwarded-For, X-Real-IP, peer, "unknown")
//  3. A rota escolhe o tier; o Registry devolve a Policy (default se desconhecido)
//  4. O Store avalia e retorna a decisão
//  5. Permitido: headers X-RateLimit-* e próximo handler. Negado: 429 JSON.
//
// Cada instância do processo tem seu próprio Store; não há sincronização
// entre réplicas.
package admission
