package sqlinline

const QSelectProviderCredential = `--sql 3b8e4f0a-6c1d-4e7b-9a52-08d1c4f6ab21
select secret
from provider_credentials
where provider_config_id = $1::uuid
limit 1;
`

const QUpsertProviderCredential = `--sql 9d72c5e8-41f3-4b06-8ce9-5a2d7e30f184
insert into provider_credentials(provider_config_id, secret, created_at, updated_at)
values ($1::uuid, $2::text, now(), now())
on conflict (provider_config_id) do update set
  secret = excluded.secret,
  updated_at = now();
`
