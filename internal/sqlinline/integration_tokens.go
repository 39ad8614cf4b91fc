package sqlinline

const QSelectIntegrationToken = `--sql 0f28ffd7-6c1a-4309-878e-4540f8202826
select token
from integration_tokens
where provider = $1;
`

const QUpsertIntegrationToken = `--sql 82175545-4d8d-446b-aa2f-d7844d1c5895
insert into integration_tokens (provider, token, properties)
values ($1, $2, $3)
on conflict (provider) do update
set token = excluded.token,
    properties = excluded.properties,
    updated_at = now();
`
